package souls

import (
	"fmt"
	"sync"

	"github.com/bytedance/sonic"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/GriffinCanCode/ghostbrain/internal/infrastructure/logging"
	"github.com/GriffinCanCode/ghostbrain/internal/infrastructure/monitoring"
)

// Event types sent to souls.
const (
	EventConnection = "CONNECTION"
	EventWitness    = "WITNESS_EVENT"
)

// ConnectionMessage greets every new soul.
const ConnectionMessage = "Your soul is now bound to this realm..."

// Event is a server to client message.
type Event struct {
	Type     string `json:"type"`
	Message  string `json:"message"`
	Filename string `json:"filename,omitempty"`
}

// Connected returns the greeting event.
func Connected() Event {
	return Event{Type: EventConnection, Message: ConnectionMessage}
}

// Witness returns the event broadcast when a file is touched.
func Witness(filename string) Event {
	return Event{
		Type:     EventWitness,
		Filename: filename,
		Message:  "Do not touch " + filename,
	}
}

// Conn is a live client connection. Send must be safe to call from
// multiple goroutines.
type Conn interface {
	Send(payload []byte) error
	Close() error
}

// Registry tracks live soul connections.
type Registry struct {
	mu    sync.RWMutex
	souls map[string]Conn

	metrics *monitoring.Metrics
	logger  *logging.Logger
}

// NewRegistry creates an empty registry. metrics may be nil.
func NewRegistry(logger *logging.Logger, metrics *monitoring.Metrics) *Registry {
	return &Registry{
		souls:   make(map[string]Conn),
		metrics: metrics,
		logger:  logging.OrNop(logger).Named("souls"),
	}
}

// Register adds conn and returns its id.
func (r *Registry) Register(conn Conn) string {
	id := uuid.New().String()

	r.mu.Lock()
	r.souls[id] = conn
	count := len(r.souls)
	r.mu.Unlock()

	r.publish(count)
	r.logger.Info("soul bound", zap.String("soul_id", id), zap.Int("souls", count))
	return id
}

// Unregister removes id. Unknown ids are ignored.
func (r *Registry) Unregister(id string) {
	r.mu.Lock()
	_, ok := r.souls[id]
	delete(r.souls, id)
	count := len(r.souls)
	r.mu.Unlock()

	if ok {
		r.publish(count)
		r.logger.Info("soul released", zap.String("soul_id", id), zap.Int("souls", count))
	}
}

// Count returns the number of live souls.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.souls)
}

// Send encodes event and delivers it to a single soul.
func (r *Registry) Send(conn Conn, event Event) error {
	payload, err := Encode(event)
	if err != nil {
		return err
	}
	if err := conn.Send(payload); err != nil {
		return err
	}
	if r.metrics != nil {
		r.metrics.RecordWSMessage("out", event.Type)
	}
	return nil
}

// Broadcast sends event to every live soul and returns how many received
// it. Souls whose send fails are closed and dropped; the failure does not
// affect delivery to the others.
func (r *Registry) Broadcast(event Event) int {
	payload, err := Encode(event)
	if err != nil {
		r.logger.Error("broadcast encode failed", zap.Error(err))
		return 0
	}

	r.mu.RLock()
	targets := make(map[string]Conn, len(r.souls))
	for id, conn := range r.souls {
		targets[id] = conn
	}
	r.mu.RUnlock()

	delivered := 0
	for id, conn := range targets {
		err := conn.Send(payload)
		if r.metrics != nil {
			r.metrics.RecordWitness(err == nil)
		}
		if err != nil {
			r.logger.Warn("broadcast delivery failed",
				zap.String("soul_id", id),
				zap.String("type", event.Type),
				zap.Error(err),
			)
			_ = conn.Close()
			r.Unregister(id)
			continue
		}
		delivered++
		if r.metrics != nil {
			r.metrics.RecordWSMessage("out", event.Type)
		}
	}

	r.logger.Info("broadcast",
		zap.String("type", event.Type),
		zap.Int("delivered", delivered),
		zap.Int("targets", len(targets)),
	)
	return delivered
}

// Close closes every soul and empties the registry.
func (r *Registry) Close() {
	r.mu.Lock()
	conns := r.souls
	r.souls = make(map[string]Conn)
	r.mu.Unlock()

	for _, conn := range conns {
		_ = conn.Close()
	}
	r.publish(0)
}

func (r *Registry) publish(count int) {
	if r.metrics != nil {
		r.metrics.SetSouls(count)
	}
}

// Encode renders an event as JSON.
func Encode(event Event) ([]byte, error) {
	payload, err := sonic.Marshal(event)
	if err != nil {
		return nil, fmt.Errorf("encode %s event: %w", event.Type, err)
	}
	return payload, nil
}
