package notifier

import "github.com/gen2brain/beeep"

// Toaster sends a desktop notification.
type Toaster interface {
	Notify(title, message, iconPath string) error
}

// DesktopToaster sends toasts through the platform notification service.
type DesktopToaster struct{}

func (DesktopToaster) Notify(title, message, iconPath string) error {
	return beeep.Notify(title, message, iconPath)
}
