package emailsvc

import (
	"fmt"
	"net/http"
	"net/mail"
	"strconv"
	"time"

	"github.com/sendgrid/rest"
	"github.com/sendgrid/sendgrid-go"
	sgmail "github.com/sendgrid/sendgrid-go/helpers/mail"

	"github.com/trezcool/masomo-emis/core"
)

var (
	host     = "https://api.sendgrid.com"
	endpoint = "/v3/mail/send"

	maxSendAttempts = 3
	retryBackoff    = 2 * time.Second
	maxRetryWait    = 30 * time.Second
)

type sendgridService struct {
	conf       *core.Config
	key        string
	from       *sgmail.Email
	subjPrefix string
	logger     core.Logger

	api   func(req rest.Request) (*rest.Response, error) // mockable
	sleep func(d time.Duration)
}

var _ core.EmailService = (*sendgridService)(nil)

func NewSendgridService(conf *core.Config, logger core.Logger) core.EmailService {
	return newSendgridService(conf, logger)
}

func newSendgridService(conf *core.Config, logger core.Logger) *sendgridService {
	from := conf.DefaultFromEmail()
	return &sendgridService{
		conf:       conf,
		key:        conf.SendgridApiKey,
		from:       sgmail.NewEmail(from.Name, from.Address),
		subjPrefix: "[" + conf.AppName + "] ",
		logger:     logger,
		api:        sendgrid.API,
		sleep:      time.Sleep,
	}
}

func (svc *sendgridService) SendMessages(messages ...*core.EmailMessage) {
	for _, msg := range messages {
		msg := msg
		go svc.sendMessage(msg)
	}
}

func (svc *sendgridService) sendMessage(msg *core.EmailMessage) bool {
	if err := msg.Render(svc.conf); err != nil {
		svc.logger.Error(fmt.Sprintf("rendering email: %v", err), err)
		return false
	}
	if !(msg.HasRecipients() && msg.HasContent()) {
		return false
	}
	return svc.send(*msg)
}

func (svc *sendgridService) prepare(msg core.EmailMessage) *sgmail.SGMailV3 {
	p := sgmail.NewPersonalization()
	p.Subject = svc.subjPrefix + msg.Subject

	for _, to := range msg.To {
		p.AddTos(svc.getSGEmail(to))
	}
	for _, cc := range msg.Cc {
		p.AddCCs(svc.getSGEmail(cc))
	}
	for _, bcc := range msg.Bcc {
		p.AddBCCs(svc.getSGEmail(bcc))
	}

	m := sgmail.NewV3Mail()
	m.SetFrom(svc.from)
	m.AddPersonalizations(p)
	if msg.TemplateName != "" {
		// confirmation mails are tracked per template in the sendgrid stats
		m.AddCategories(msg.TemplateName)
	}

	m.AddContent(sgmail.NewContent("text/plain", msg.TextContent))
	if msg.HTMLContent != "" {
		m.AddContent(sgmail.NewContent("text/html", msg.HTMLContent))
	}
	return m
}

func (svc *sendgridService) getSGEmail(addr mail.Address) *sgmail.Email {
	return sgmail.NewEmail(addr.Name, addr.Address)
}

// send posts the message, retrying 429 & 5xx responses. It reports whether the message was accepted.
func (svc *sendgridService) send(msg core.EmailMessage) bool {
	body := sgmail.GetRequestBody(svc.prepare(msg))

	for attempt := 1; ; attempt++ {
		req := sendgrid.GetRequest(svc.key, endpoint, host)
		req.Method = http.MethodPost
		req.Body = body

		res, err := svc.api(req)
		switch {
		case err != nil:
			svc.logger.Error(fmt.Sprintf("sending email: %v", err), err)
			return false
		case res.StatusCode < http.StatusBadRequest:
			return true
		case !retryable(res.StatusCode) || attempt >= maxSendAttempts:
			svc.logger.Error(fmt.Sprintf("sending email - status: %d - Body: %s", res.StatusCode, res.Body))
			return false
		}

		wait := retryAfter(res, time.Duration(attempt)*retryBackoff)
		svc.logger.Warn(fmt.Sprintf("sending email - status: %d - retrying in %v", res.StatusCode, wait))
		svc.sleep(wait)
	}
}

func retryable(code int) bool {
	return code == http.StatusTooManyRequests || code >= http.StatusInternalServerError
}

// retryAfter reads the Retry-After header (in seconds), capped to maxRetryWait.
func retryAfter(res *rest.Response, fallback time.Duration) time.Duration {
	wait := fallback
	if vals := res.Headers["Retry-After"]; len(vals) > 0 {
		if secs, err := strconv.Atoi(vals[0]); err == nil && secs >= 0 {
			wait = time.Duration(secs) * time.Second
		}
	}
	if wait > maxRetryWait {
		wait = maxRetryWait
	}
	return wait
}
