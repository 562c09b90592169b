// Package rabbitmq implements serve mode: grade requests are consumed
// from a queue and grade reports published back, one at a time.
package rabbitmq

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/pkg/errors"
	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/s-will/GitCATS/internal/mappers"
	"github.com/s-will/GitCATS/internal/repository/models"
)

const (
	reqQueue  = "gitcats-req"
	respQueue = "gitcats-resp"
)

// GradeFunc runs the engine for one branch. found is false when the
// branch matches no registered participant.
type GradeFunc func(ctx context.Context, branch string) (participant string, result *models.RunResult, found bool, err error)

type HandlerConfig struct {
	Login    string
	Password string
	Host     string
	Port     int
}

type Handler struct {
	cfg          HandlerConfig
	grade        GradeFunc
	conn         *amqp.Connection
	consumerChan *amqp.Channel
	producerChan *amqp.Channel
	closed       bool
}

func NewHandler(cfg HandlerConfig, grade GradeFunc) *Handler {
	return &Handler{cfg: cfg, grade: grade}
}

func (h *Handler) Start(ctx context.Context) error {
	if err := h.connect(); err != nil {
		return err
	}
	// The producer must be up before the listener runs: a delivery
	// already queued at startup is handled immediately.
	if err := h.startProducer(); err != nil {
		return errors.Wrap(err, "failed to start producer")
	}
	if err := h.startConsumer(ctx); err != nil {
		return errors.Wrap(err, "failed to start consumer")
	}
	return nil
}

func (h *Handler) Close() {
	h.closed = true
	if h.conn != nil {
		h.conn.Close()
	}
}

func (h *Handler) connect() error {
	url := fmt.Sprintf("amqp://%s:%s@%s:%d", h.cfg.Login, h.cfg.Password, h.cfg.Host, h.cfg.Port)
	conn, err := amqp.Dial(url)
	if err != nil {
		return errors.Wrap(err, "failed to connect to rabbitmq")
	}
	h.conn = conn

	errChan := make(chan *amqp.Error)
	conn.NotifyClose(errChan)
	go func() {
		<-errChan
		if h.closed {
			return
		}
		for {
			time.Sleep(15 * time.Second)
			if err := h.Start(context.Background()); err == nil {
				return
			}
		}
	}()
	return nil
}

func (h *Handler) startConsumer(ctx context.Context) error {
	channel, err := h.conn.Channel()
	if err != nil {
		return err
	}
	queue, err := channel.QueueDeclare(reqQueue, false, false, false, false, nil)
	if err != nil {
		return err
	}
	del, err := channel.Consume(queue.Name, "", true, false, false, false, nil)
	if err != nil {
		return err
	}
	h.consumerChan = channel
	go h.listener(ctx, del)
	return nil
}

func (h *Handler) startProducer() error {
	channel, err := h.conn.Channel()
	if err != nil {
		return err
	}
	if _, err := channel.QueueDeclare(respQueue, false, false, false, false, nil); err != nil {
		return err
	}
	h.producerChan = channel
	return nil
}

// listener handles requests strictly sequentially: the engine assumes
// one run at a time.
func (h *Handler) listener(ctx context.Context, deliveries <-chan amqp.Delivery) {
	for data := range deliveries {
		var req models.GradeRequest
		if err := json.Unmarshal(data.Body, &req); err != nil {
			slog.Error("invalid grade request", "message", string(data.Body))
			continue
		}
		h.send(h.handle(ctx, &req))
	}
}

func (h *Handler) handle(ctx context.Context, req *models.GradeRequest) *models.GradeReport {
	participant, result, found, err := h.grade(ctx, req.Branch)
	if err != nil {
		slog.Error("grading failed", "branch", req.Branch, "error", err)
		report := mappers.NotFoundReport(req)
		report.Passed = false
		report.Error = err.Error()
		return report
	}
	if !found {
		slog.Info("branch does not name a registered participant", "branch", req.Branch)
		return mappers.NotFoundReport(req)
	}
	return mappers.RunResultToReport(req, participant, result)
}

func (h *Handler) send(report *models.GradeReport) {
	if h.closed || h.producerChan == nil {
		return
	}
	body, _ := json.Marshal(report)
	err := h.producerChan.Publish("", respQueue, false, false, amqp.Publishing{
		ContentType: "application/json",
		Body:        body,
	})
	if err != nil {
		slog.Error("failed to publish grade report", "error", err)
	}
}
