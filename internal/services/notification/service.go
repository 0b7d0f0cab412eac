// Package notification is the out-of-band side-effect queue. Mutation
// handlers enqueue typed effects (email, SMS, in-app notification); a single
// background worker delivers them with bounded retries. Delivery is
// at-least-once and a failure never fails the mutation that enqueued it.
package notification

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Side-effect kinds.
const (
	KindEmail        = "email"
	KindSMS          = "sms"
	KindNotification = "notification"
)

// SideEffect is one queued delivery request.
type SideEffect struct {
	ID        string
	Kind      string
	Recipient string // email address, phone number, or user ID
	Subject   string
	Body      string
	Attempts  int
}

// Sender delivers one effect. Implementations wrap SMTP, an SMS gateway, or
// the in-app notification store; absence of credentials degrades to the
// logging sender.
type Sender interface {
	Send(ctx context.Context, effect SideEffect) error
}

// LogSender logs deliveries instead of sending them. It stands in whenever
// outbound credentials are not configured.
type LogSender struct{}

func (LogSender) Send(_ context.Context, effect SideEffect) error {
	log.Printf("side effect %s [%s] to %s: %s", effect.ID, effect.Kind, effect.Recipient, effect.Subject)
	return nil
}

const (
	defaultQueueSize   = 256
	defaultMaxAttempts = 3
	defaultSendTimeout = 10 * time.Second
)

type Service struct {
	senders     map[string]Sender
	queue       chan SideEffect
	maxAttempts int
	sendTimeout time.Duration

	stop     chan struct{}
	stopOnce sync.Once
	done     chan struct{}
}

// NewService builds the queue. senders maps effect kinds to transports;
// kinds without a sender fall back to LogSender.
func NewService(senders map[string]Sender) *Service {
	if senders == nil {
		senders = map[string]Sender{}
	}
	s := &Service{
		senders:     senders,
		queue:       make(chan SideEffect, defaultQueueSize),
		maxAttempts: defaultMaxAttempts,
		sendTimeout: defaultSendTimeout,
		stop:        make(chan struct{}),
		done:        make(chan struct{}),
	}
	go s.worker()
	return s
}

// Enqueue queues an effect without blocking the caller. A full queue drops
// the effect with a log line: the primary mutation has already committed and
// must not stall on delivery backpressure.
func (s *Service) Enqueue(effect SideEffect) {
	if effect.ID == "" {
		effect.ID = uuid.NewString()
	}
	select {
	case s.queue <- effect:
	default:
		log.Printf("side-effect queue full, dropping %s [%s]", effect.ID, effect.Kind)
	}
}

func (s *Service) worker() {
	defer close(s.done)
	for {
		select {
		case effect := <-s.queue:
			s.deliver(effect)
		case <-s.stop:
			// Drain what is already queued, then exit.
			for {
				select {
				case effect := <-s.queue:
					s.deliver(effect)
				default:
					return
				}
			}
		}
	}
}

func (s *Service) deliver(effect SideEffect) {
	sender, ok := s.senders[effect.Kind]
	if !ok {
		sender = LogSender{}
	}
	ctx, cancel := context.WithTimeout(context.Background(), s.sendTimeout)
	err := sender.Send(ctx, effect)
	cancel()
	if err == nil {
		return
	}

	effect.Attempts++
	if effect.Attempts >= s.maxAttempts {
		log.Printf("side effect %s [%s] dropped after %d attempts: %v",
			effect.ID, effect.Kind, effect.Attempts, err)
		return
	}
	log.Printf("side effect %s [%s] failed (attempt %d): %v",
		effect.ID, effect.Kind, effect.Attempts, err)
	// Requeue for another pass; a full queue drops as in Enqueue.
	select {
	case s.queue <- effect:
	default:
		log.Printf("side-effect queue full, dropping retry %s", effect.ID)
	}
}

// Close stops the worker after draining queued effects.
func (s *Service) Close() {
	s.stopOnce.Do(func() { close(s.stop) })
	<-s.done
}
