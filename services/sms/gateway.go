// Package smssvc delivers text messages through the configured third-party
// HTTP gateway.
package smssvc

import (
	"context"
	"net/http"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/pkg/errors"

	"github.com/tulongph/tulong/core"
)

type (
	sendPayload struct {
		Username   string   `json:"username"`
		Password   string   `json:"password"`
		Sender     string   `json:"sender"`
		Message    string   `json:"message"`
		Recipients []string `json:"recipients"`
	}

	sendResponse struct {
		MessageID string `json:"message_id"`
		Error     string `json:"error"`
	}

	statusResponse struct {
		Status string `json:"status"`
		Error  string `json:"error"`
	}

	// gatewayService talks to the external SMS provider. Credentials are an
	// injected snapshot taken at startup, not re-read per send.
	gatewayService struct {
		client *resty.Client
		conf   core.SMSGatewayConfig
	}
)

var _ core.SMSService = (*gatewayService)(nil)

func NewGatewayService(gwConf core.SMSGatewayConfig, timeout time.Duration) *gatewayService {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &gatewayService{
		client: resty.New().SetTimeout(timeout),
		conf:   gwConf,
	}
}

func (svc *gatewayService) Send(ctx context.Context, msg core.SMSMessage) (core.SMSResult, error) {
	if !msg.HasRecipients() {
		return core.SMSResult{}, nil
	}
	if svc.conf.URL == "" {
		return core.SMSResult{}, errors.New("sms gateway is not configured")
	}

	var out sendResponse
	resp, err := svc.client.R().
		SetContext(ctx).
		SetBody(sendPayload{
			Username:   svc.conf.Username,
			Password:   svc.conf.Password,
			Sender:     svc.conf.Sender,
			Message:    msg.Body,
			Recipients: msg.Recipients,
		}).
		SetResult(&out).
		SetError(&out).
		Post(svc.conf.URL + "/messages")
	if err != nil {
		return core.SMSResult{}, errors.Wrap(err, "calling sms gateway")
	}
	if resp.StatusCode() >= http.StatusBadRequest {
		return core.SMSResult{}, errors.Errorf("sms gateway: status %d: %s", resp.StatusCode(), out.Error)
	}
	return core.SMSResult{MessageID: out.MessageID}, nil
}

func (svc *gatewayService) DeliveryStatus(ctx context.Context, messageID string) (string, error) {
	if svc.conf.URL == "" {
		return "", errors.New("sms gateway is not configured")
	}

	var out statusResponse
	resp, err := svc.client.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"username": svc.conf.Username,
			"password": svc.conf.Password,
		}).
		SetResult(&out).
		SetError(&out).
		Get(svc.conf.URL + "/messages/" + messageID)
	if err != nil {
		return "", errors.Wrap(err, "calling sms gateway")
	}
	if resp.StatusCode() >= http.StatusBadRequest {
		return "", errors.Errorf("sms gateway: status %d: %s", resp.StatusCode(), out.Error)
	}
	return out.Status, nil
}
