package monitor

import (
	"log"

	"github.com/bong69rip420/rugwatcher-automator/internal/domain"
)

// Notifier receives monitor events. Implementations must not block.
type Notifier interface {
	NewToken(token domain.Token)
	TradeCompleted(trade domain.Trade)
}

// NopNotifier discards all events.
type NopNotifier struct{}

func (NopNotifier) NewToken(domain.Token)       {}
func (NopNotifier) TradeCompleted(domain.Trade) {}

// LogNotifier writes events to a logger.
type LogNotifier struct {
	Logger *log.Logger
}

func NewLogNotifier(logger *log.Logger) *LogNotifier {
	if logger == nil {
		logger = log.Default()
	}
	return &LogNotifier{Logger: logger}
}

func (n *LogNotifier) NewToken(token domain.Token) {
	n.Logger.Printf("[notify] new token %s", token.Address)
}

func (n *LogNotifier) TradeCompleted(trade domain.Trade) {
	txID := ""
	if trade.TransactionID != nil {
		txID = *trade.TransactionID
	}
	n.Logger.Printf("[notify] trade completed for %s amount %.4f tx %s", trade.TokenAddress, trade.Amount, txID)
}
