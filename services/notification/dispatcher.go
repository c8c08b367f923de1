// Package notifsvc fans urgent notices and emergency alerts out to the
// configured safety contacts. Delivery rides on core.EmailService; the
// safety layer only hands over the record.
package notifsvc

import (
	"fmt"
	"net/mail"
	"sync"
	"time"

	"github.com/trezcool/kinga/core"
	"github.com/trezcool/kinga/core/safety"
)

type emailDispatcher struct {
	mailSvc  core.EmailService
	contacts []mail.Address
	log      core.Logger
}

var _ safety.Dispatcher = (*emailDispatcher)(nil)

func NewEmailDispatcher(mailSvc core.EmailService, log core.Logger) *emailDispatcher {
	contacts := make([]mail.Address, 0, len(core.Conf.SafetyContacts))
	for _, addr := range core.Conf.SafetyContacts {
		contacts = append(contacts, mail.Address{Address: addr})
	}
	return &emailDispatcher{
		mailSvc:  mailSvc,
		contacts: contacts,
		log:      log,
	}
}

func (d emailDispatcher) DispatchNotice(n safety.Notice) {
	if len(d.contacts) == 0 {
		d.log.Warn("no safety contacts configured; urgent notice not dispatched")
		return
	}
	d.mailSvc.SendMessages(&core.EmailMessage{
		To:      d.contacts,
		Subject: "URGENT NOTICE: " + n.Title,
		Body:    fmt.Sprintf("%s\n\nPublished at %s.", n.Content, n.CreatedAt.Format(time.RFC1123)),
	})
}

func (d emailDispatcher) DispatchEmergency(a safety.EmergencyAlert) {
	if len(d.contacts) == 0 {
		d.log.Warn("no safety contacts configured; emergency alert not dispatched")
		return
	}
	body := a.Message
	if a.Location != "" {
		body += "\n\nLocation: " + a.Location
	}
	body += fmt.Sprintf("\n\nTriggered at %s.", a.CreatedAt.Format(time.RFC1123))
	d.mailSvc.SendMessages(&core.EmailMessage{
		To:      d.contacts,
		Subject: "EMERGENCY ALERT",
		Body:    body,
	})
}

// RecorderDispatcher collects dispatches instead of delivering them; test use.
type RecorderDispatcher struct {
	mu      sync.Mutex
	Notices []safety.Notice
	Alerts  []safety.EmergencyAlert
}

var _ safety.Dispatcher = (*RecorderDispatcher)(nil)

func NewRecorderDispatcher() *RecorderDispatcher { return &RecorderDispatcher{} }

func (d *RecorderDispatcher) DispatchNotice(n safety.Notice) {
	d.mu.Lock()
	d.Notices = append(d.Notices, n)
	d.mu.Unlock()
}

func (d *RecorderDispatcher) DispatchEmergency(a safety.EmergencyAlert) {
	d.mu.Lock()
	d.Alerts = append(d.Alerts, a)
	d.mu.Unlock()
}
