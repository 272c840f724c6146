package smssvc

import (
	"context"
	"fmt"
	"log"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/tulongph/tulong/core"
)

type consoleService struct {
	mu            sync.Mutex
	sent          []core.SMSMessage
	disableOutput bool
}

var _ core.SMSService = (*consoleService)(nil)

func NewConsoleService() *consoleService {
	return &consoleService{}
}

// NewConsoleServiceMock records messages without printing; for tests.
func NewConsoleServiceMock() *consoleService {
	return &consoleService{disableOutput: true}
}

func (svc *consoleService) Send(_ context.Context, msg core.SMSMessage) (core.SMSResult, error) {
	svc.mu.Lock()
	svc.sent = append(svc.sent, msg)
	svc.mu.Unlock()

	if !svc.disableOutput {
		log.Println(fmt.Sprintf("SMS to [%s]: %s", strings.Join(msg.Recipients, ", "), msg.Body))
	}
	return core.SMSResult{MessageID: uuid.New().String()}, nil
}

func (svc *consoleService) DeliveryStatus(context.Context, string) (string, error) {
	return "DELIVERED", nil
}

// SentMessages returns a copy of everything recorded so far.
func (svc *consoleService) SentMessages() []core.SMSMessage {
	svc.mu.Lock()
	defer svc.mu.Unlock()
	out := make([]core.SMSMessage, len(svc.sent))
	copy(out, svc.sent)
	return out
}
