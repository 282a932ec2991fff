package extensibility

import (
	"log"
	"time"

	"github.com/comalice/attributex"
	"github.com/comalice/attributex/internal/primitives"
)

// LoggingHost wraps a ScriptHost and logs every phase call with its result
// and duration.
type LoggingHost struct {
	inner  attributex.ScriptHost
	logger *log.Logger
}

// NewLoggingHost wraps inner. A nil logger logs to log.Default().
func NewLoggingHost(inner attributex.ScriptHost, logger *log.Logger) *LoggingHost {
	if logger == nil {
		logger = log.Default()
	}
	return &LoggingHost{inner: inner, logger: logger}
}

func (h *LoggingHost) InitRule(r *attributex.ScriptRule) error {
	start := time.Now()
	err := h.inner.InitRule(r)
	h.logger.Printf("LOG: init_rule completed in %v: %v", time.Since(start), err)
	return err
}

func (h *LoggingHost) InitAttribute(r *attributex.ScriptRule, attr attributex.Attribute, md attributex.MetaData) {
	start := time.Now()
	h.inner.InitAttribute(r, attr, md)
	h.logger.Printf("LOG: init_attribute %s %+v in %v", attr, md, time.Since(start))
}

func (h *LoggingHost) PreAttributeBaseChange(r *attributex.ScriptRule, attr attributex.Attribute, value float64) float64 {
	start := time.Now()
	out := h.inner.PreAttributeBaseChange(r, attr, value)
	h.logger.Printf("LOG: pre_base_change %s %g -> %g in %v", attr, value, out, time.Since(start))
	return out
}

func (h *LoggingHost) PreAttributeChange(r *attributex.ScriptRule, attr attributex.Attribute, value float64) float64 {
	start := time.Now()
	out := h.inner.PreAttributeChange(r, attr, value)
	h.logger.Printf("LOG: pre_change %s %g -> %g in %v", attr, value, out, time.Since(start))
	return out
}

func (h *LoggingHost) PostAttributeChange(r *attributex.ScriptRule, attr attributex.Attribute, oldValue, newValue float64) {
	start := time.Now()
	h.inner.PostAttributeChange(r, attr, oldValue, newValue)
	h.logger.Printf("LOG: post_change %s %g -> %g in %v", attr, oldValue, newValue, time.Since(start))
}

// LoggingLoader wraps every host made by loader in a LoggingHost.
func LoggingLoader(loader primitives.ScriptLoader, logger *log.Logger) primitives.ScriptLoader {
	return func(rc primitives.RuleConfig) (attributex.ScriptHost, error) {
		host, err := loader(rc)
		if err != nil {
			return nil, err
		}
		return NewLoggingHost(host, logger), nil
	}
}
