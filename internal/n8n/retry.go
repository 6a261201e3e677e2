package n8n

import (
	"errors"
	"math"
	"net"
	"net/http"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/sirupsen/logrus"
)

// RetryConfig controls redelivery of a trigger. Only failed dials and
// gateway statuses are retried: any other answer means the workflow saw the
// request, and a second trigger would start a duplicate run.
type RetryConfig struct {
	MaxRetries int
	BaseDelay  time.Duration
	MaxDelay   time.Duration
}

func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxRetries: 2,
		BaseDelay:  500 * time.Millisecond,
		MaxDelay:   5 * time.Second,
	}
}

// Delay returns the wait before retry number attempt (1-based).
func (r RetryConfig) Delay(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	delay := time.Duration(float64(r.BaseDelay) * math.Pow(1.5, float64(attempt-1)))
	if delay > r.MaxDelay {
		delay = r.MaxDelay
	}
	return delay
}

func retryable(resp *resty.Response, err error) bool {
	if resp == nil {
		return false
	}
	if err != nil {
		return dialFailed(err)
	}
	switch resp.StatusCode() {
	case http.StatusBadGateway, http.StatusServiceUnavailable, http.StatusGatewayTimeout:
		return true
	}
	return false
}

// dialFailed reports whether the request never left this process. A timeout
// or a broken connection after the request was written may already have
// started a run.
func dialFailed(err error) bool {
	var opErr *net.OpError
	return errors.As(err, &opErr) && opErr.Op == "dial"
}

func (r RetryConfig) apply(c *resty.Client, logger *logrus.Logger) {
	if r.MaxRetries <= 0 {
		return
	}
	c.SetRetryCount(r.MaxRetries).
		SetRetryWaitTime(r.BaseDelay).
		SetRetryMaxWaitTime(r.MaxDelay).
		AddRetryCondition(retryable).
		SetRetryAfter(func(_ *resty.Client, resp *resty.Response) (time.Duration, error) {
			return r.Delay(resp.Request.Attempt), nil
		}).
		AddRetryHook(func(resp *resty.Response, err error) {
			if resp == nil {
				return
			}
			fields := logrus.Fields{"attempt": resp.Request.Attempt}
			if err != nil {
				fields["error"] = err.Error()
			} else {
				fields["status_code"] = resp.StatusCode()
			}
			logger.WithFields(fields).Warn("Retrying workflow webhook")
		})
}
