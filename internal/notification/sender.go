// Package notification delivers validation codes to account holders. Real
// deployments plug in a mail transport; the log sender is for development and
// as a stand-in until one is configured.
package notification

import (
	"context"
	"log/slog"

	userdomain "github.com/EdouardYu/ZeroDay/internal/user/domain"
	validation "github.com/EdouardYu/ZeroDay/internal/validation/service"
)

// LogSender writes codes to the process log instead of sending mail.
// It must not be used where real users receive their codes by email.
type LogSender struct{}

// Send logs the issued code with its purpose and validity.
func (LogSender) Send(ctx context.Context, user *userdomain.User, code string, purpose validation.Purpose, validity string) error {
	slog.Info("validation code issued",
		"email", user.Email,
		"code", code,
		"purpose", purpose,
		"valid_for", validity,
	)
	return nil
}
