package notifysvc

import (
	"context"
	"fmt"
	"net/mail"
	"time"

	"github.com/trezcool/rollcall/core"
	"github.com/trezcool/rollcall/core/lesson"
	"github.com/trezcool/rollcall/core/student"
)

const lookupTimeout = 10 * time.Second

// EmailNotifier emails students a confirmation when their attendance flips to
// Present. Delivery is best effort; failures are logged, never returned, so
// attendance state never depends on a mail provider.
type EmailNotifier struct {
	studentSvc student.ServiceInterface
	emailSvc   core.EmailService
	logger     core.Logger
}

var _ lesson.Notifier = (*EmailNotifier)(nil)

func NewEmailNotifier(studentSvc student.ServiceInterface, emailSvc core.EmailService, logger core.Logger) *EmailNotifier {
	return &EmailNotifier{
		studentSvc: studentSvc,
		emailSvc:   emailSvc,
		logger:     logger,
	}
}

func (n *EmailNotifier) NotifyPresent(lsn lesson.Lesson, studentIDs ...string) {
	if len(studentIDs) == 0 {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), lookupTimeout)
	defer cancel()

	students, err := n.studentSvc.GetByIDs(ctx, studentIDs)
	if err != nil {
		n.logger.Error(fmt.Sprintf("resolving students for presence notice: %v", err), err)
		return
	}

	messages := make([]*core.EmailMessage, 0, len(students))
	for _, std := range students {
		if std.Email == "" {
			continue
		}
		messages = append(messages, &core.EmailMessage{
			To:      []mail.Address{{Name: std.Name, Address: std.Email}},
			Subject: fmt.Sprintf("Attendance recorded for %s", lsn.Name),
			BodyStr: fmt.Sprintf("Hi %s,\n\nYou have been marked present in %q.", std.Name, lsn.Name),
		})
	}
	if len(messages) > 0 {
		n.emailSvc.SendMessages(messages...)
	}
}
