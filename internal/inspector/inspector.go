// Package inspector infers schemas for observed HTTP exchanges, logs them and
// optionally persists them.
package inspector

import (
	"mime"

	"github.com/mcncl/castor/internal/analyzer"
	"github.com/mcncl/castor/internal/formatter"
	"github.com/mcncl/castor/internal/metrics"
	"github.com/mcncl/castor/internal/models"
	"github.com/mcncl/castor/internal/output"
	"github.com/mcncl/castor/internal/parser"
	"github.com/sirupsen/logrus"
)

const jsonMediaType = "application/json"

// Message is one side of an exchange.
type Message struct {
	ContentType string
	Body        []byte
}

// Exchange is a request together with the response it received.
type Exchange struct {
	Method   string
	Host     string
	Port     int
	Path     string // request URI, including the query string
	Request  Message
	Response Message
}

// Report describes what Inspect produced for an exchange.
type Report struct {
	// Request holds the request schema, or the raw request text when the
	// body could not be decoded and the content type allowed a fallback.
	Request       string
	RequestIsText bool
	// Response holds the response schema. Only object bodies produce one.
	Response string
	// Files lists the paths schemas were written to.
	Files []string
}

// Options configures an Inspector
type Options struct {
	// Checks restricts inspection to application/json messages.
	Checks    bool
	Writer    *output.Writer // nil disables persistence
	Formatter *formatter.Formatter
	Metrics   *metrics.Metrics
	Logger    logrus.FieldLogger
}

// Inspector turns exchanges into schemas. It is safe for concurrent use.
type Inspector struct {
	checks    bool
	writer    *output.Writer
	formatter *formatter.Formatter
	metrics   *metrics.Metrics
	log       logrus.FieldLogger
}

// New creates an Inspector
func New(opts Options) *Inspector {
	if opts.Formatter == nil {
		opts.Formatter = formatter.NewFormatter()
	}
	if opts.Logger == nil {
		opts.Logger = logrus.StandardLogger()
	}
	return &Inspector{
		checks:    opts.Checks,
		writer:    opts.Writer,
		formatter: opts.Formatter,
		metrics:   opts.Metrics,
		log:       opts.Logger,
	}
}

// IsJSON reports whether a Content-Type header names application/json.
// Parameters such as charset are ignored.
func IsJSON(contentType string) bool {
	if contentType == "" {
		return false
	}
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return false
	}
	return mediaType == jsonMediaType
}

// Inspect handles one exchange.
//
// The request body is only looked at when it is non-empty and the response is
// JSON (or checks are off). A request declared as JSON must decode; any other
// or missing content type is tried as JSON and falls back to its raw text.
// The response is looked at when it is JSON (or checks are off) and only a
// top-level object yields a schema.
func (i *Inspector) Inspect(ex Exchange) Report {
	log := i.log.WithFields(logrus.Fields{
		"method": ex.Method,
		"host":   ex.Host,
		"port":   ex.Port,
		"path":   ex.Path,
	})

	var report Report
	responseIsJSON := IsJSON(ex.Response.ContentType)

	if len(ex.Request.Body) > 0 && (responseIsJSON || !i.checks) {
		i.inspectRequest(log, ex, &report)
	}
	if responseIsJSON || !i.checks {
		i.inspectResponse(log, ex, &report)
	}
	return report
}

func (i *Inspector) inspectRequest(log logrus.FieldLogger, ex Exchange, report *Report) {
	log = log.WithField("direction", output.Request)
	contentType := ex.Request.ContentType

	var msg string
	switch {
	case contentType != "" && (IsJSON(contentType) || !i.checks):
		schema, err := i.schemaFor(ex.Request.Body, output.Request)
		if err != nil {
			log.WithError(err).Error("Failed to parse JSON request")
			return
		}
		msg = schema
	default:
		if contentType == "" {
			log.Error("No content type in request")
		}
		schema, err := i.schemaFor(ex.Request.Body, output.Request)
		if err != nil {
			log.WithError(err).Error("Failed to parse JSON request, using text instead")
			msg = string(ex.Request.Body)
			report.RequestIsText = true
		} else {
			msg = schema
		}
	}

	if msg == "" {
		return
	}
	report.Request = msg
	log.Info("Request:\n" + msg)
	i.persist(log, ex, output.Request, msg, report)
}

func (i *Inspector) inspectResponse(log logrus.FieldLogger, ex Exchange, report *Report) {
	log = log.WithField("direction", output.Response)

	ir, err := parser.ParseBytes(ex.Response.Body)
	if err != nil {
		i.metrics.DecodeFailed(string(output.Response))
		log.WithError(err).Error("Failed to parse JSON response")
		return
	}
	if _, ok := ir.Root.(models.JSONObject); !ok {
		log.Debug("Response is not a JSON object, skipping")
		return
	}

	msg, err := i.formatter.Format(analyzer.InferDocument(ir))
	if err != nil {
		log.WithError(err).Error("Failed to render response schema")
		return
	}
	i.metrics.SchemaInferred(string(output.Response))

	report.Response = msg
	log.Info("Response:\n" + msg)
	i.persist(log, ex, output.Response, msg, report)
}

// schemaFor decodes body and renders its schema.
func (i *Inspector) schemaFor(body []byte, direction output.Direction) (string, error) {
	ir, err := parser.ParseBytes(body)
	if err != nil {
		i.metrics.DecodeFailed(string(direction))
		return "", err
	}
	msg, err := i.formatter.Format(analyzer.InferDocument(ir))
	if err != nil {
		return "", err
	}
	i.metrics.SchemaInferred(string(direction))
	return msg, nil
}

func (i *Inspector) persist(log logrus.FieldLogger, ex Exchange, direction output.Direction, msg string, report *Report) {
	if i.writer == nil {
		return
	}
	path, err := i.writer.Write(ex.Host, ex.Port, ex.Path, direction, msg)
	if err != nil {
		log.WithError(err).Error("Failed to write schema")
		return
	}
	i.metrics.SchemaWritten()
	log.Infof("Writing schema to %s", path)
	report.Files = append(report.Files, path)
}
