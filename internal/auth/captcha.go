package auth

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/fivetwenty-io/shopadmin/internal/constants"
	shophttp "github.com/fivetwenty-io/shopadmin/internal/http"
	"github.com/fivetwenty-io/shopadmin/pkg/shop"
)

// Captcha failure messages.
const (
	CaptchaMessageMissingImage = "captcha response is missing the image"
	CaptchaMessageServerError  = "server error, retry later"
	CaptchaMessageUnreachable  = "cannot reach server"
)

// CaptchaClient fetches login challenges. It never retries.
type CaptchaClient struct {
	transport Doer
}

// NewCaptchaClient creates a captcha client.
func NewCaptchaClient(transport Doer) *CaptchaClient {
	return &CaptchaClient{transport: transport}
}

// Fetch retrieves a new challenge. Every failure other than cancellation is a
// CaptchaUnavailable error.
func (c *CaptchaClient) Fetch(ctx context.Context) (*shop.Captcha, error) {
	resp, err := c.transport.Do(ctx, &shophttp.Request{
		Method: http.MethodGet,
		Path:   constants.APIPathCaptcha,
	})
	if err != nil {
		return nil, captchaError(ctx, resp, err)
	}

	var captcha shop.Captcha

	err = json.Unmarshal(shop.NormalizeEnvelope(resp.Body), &captcha)
	if err != nil || captcha.Image == "" {
		return nil, &shop.Error{
			Kind:       shop.KindCaptchaUnavailable,
			Message:    CaptchaMessageMissingImage,
			StatusCode: resp.StatusCode,
			Err:        err,
		}
	}

	return &captcha, nil
}

func captchaError(ctx context.Context, resp *shophttp.Response, err error) error {
	if ctx.Err() != nil {
		return err
	}

	shopErr := &shop.Error{Kind: shop.KindCaptchaUnavailable, Err: err}

	switch {
	case resp == nil:
		shopErr.Message = CaptchaMessageUnreachable
	case resp.StatusCode >= http.StatusInternalServerError:
		shopErr.Message = CaptchaMessageServerError
		shopErr.StatusCode = resp.StatusCode
		shopErr.Err = nil
	default:
		shopErr.Message = "captcha request rejected"
		shopErr.StatusCode = resp.StatusCode
		shopErr.Err = nil
	}

	return shopErr
}
