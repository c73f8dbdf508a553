package services

import (
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/PalmTamino/Xboard/internal/utils"
	"go.uber.org/zap"
)

// Notifier delivers a message to the operator-facing channel.
// Implementations must be safe for concurrent use.
type Notifier interface {
	Notify(message string) error
}

const telegramAPIBase = "https://api.telegram.org"

// TelegramNotifier sends messages to the configured operator chat via the
// Telegram Bot API.
type TelegramNotifier struct {
	BotToken string
	ChatID   string

	apiBase string
	client  *http.Client
}

func NewTelegramNotifier(botToken, chatID string) *TelegramNotifier {
	return &TelegramNotifier{
		BotToken: botToken,
		ChatID:   chatID,
		apiBase:  telegramAPIBase,
		client:   utils.NewHTTPClient(10 * time.Second),
	}
}

func (n *TelegramNotifier) Notify(message string) error {
	if n.BotToken == "" || n.ChatID == "" {
		return errors.New("telegram notifier is not configured")
	}

	endpoint := fmt.Sprintf("%s/bot%s/sendMessage", n.apiBase, n.BotToken)
	form := url.Values{}
	form.Set("chat_id", n.ChatID)
	form.Set("text", message)
	form.Set("parse_mode", "Markdown")

	resp, err := n.client.PostForm(endpoint, form)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("telegram sendMessage returned %s", resp.Status)
	}
	return nil
}

// NotifyDispatcher 通知分发器,后台 worker 异步投递运营通知
//
// Delivery is best effort: a full queue drops the message instead of
// blocking the caller, so webhook latency never depends on the operator
// channel being reachable.
type NotifyDispatcher struct {
	notifier Notifier
	queue    chan string
	stop     chan struct{}
	done     chan struct{}
}

// NotifyDisp is the process-wide dispatcher. main replaces it with one
// wired to a real notifier before starting the router; the zero-value
// default silently discards messages.
var NotifyDisp = NewNotifyDispatcher(nil, 256)

func NewNotifyDispatcher(notifier Notifier, queueSize int) *NotifyDispatcher {
	return &NotifyDispatcher{
		notifier: notifier,
		queue:    make(chan string, queueSize),
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
	}
}

// Dispatch enqueues a message without blocking.
func (d *NotifyDispatcher) Dispatch(message string) {
	select {
	case d.queue <- message:
	default:
		zap.L().Warn("通知队列已满,丢弃消息", zap.Int("queue_size", cap(d.queue)))
	}
}

// Start launches the delivery worker.
func (d *NotifyDispatcher) Start() {
	go func() {
		defer close(d.done)
		for {
			select {
			case msg := <-d.queue:
				d.deliver(msg)
			case <-d.stop:
				// drain what is already queued before exiting
				for {
					select {
					case msg := <-d.queue:
						d.deliver(msg)
					default:
						return
					}
				}
			}
		}
	}()
}

// Stop signals the worker to drain the queue and exit, then waits for it.
func (d *NotifyDispatcher) Stop() {
	close(d.stop)
	<-d.done
}

func (d *NotifyDispatcher) deliver(message string) {
	if d.notifier == nil {
		return
	}
	if err := d.notifier.Notify(message); err != nil {
		zap.L().Warn("运营通知发送失败", zap.Error(err))
	}
}
