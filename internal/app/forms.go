package app

import (
	"context"
	"errors"
	"fmt"
	"os"
	"slices"
	"strconv"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"

	"github.com/nateberkopec/cardnudge/internal/content"
	"github.com/nateberkopec/cardnudge/internal/persistence"
	"github.com/nateberkopec/cardnudge/internal/reminder"
)

// formDraft holds the values bound to whichever form is open.
type formDraft struct {
	enabled  bool
	interval string
	category string

	message string
	image   string
	pairID  string
}

// SettingsForm builds the settings dialog. It is shared with the
// `cardnudge settings` command, which runs it standalone.
func SettingsForm(enabled *bool, interval, category *string, categories []string) *huh.Form {
	if !slices.Contains(categories, *category) {
		categories = append(categories, *category)
	}
	return huh.NewForm(
		huh.NewGroup(
			huh.NewConfirm().
				Title("Enable notifications").
				Affirmative("On").
				Negative("Off").
				Value(enabled),
			huh.NewInput().
				Title("Notification interval (minutes)").
				Placeholder("5").
				Value(interval).
				Validate(validateInterval),
			huh.NewSelect[string]().
				Title("Category").
				Description("Only count cards from this deck").
				Options(huh.NewOptions(categories...)...).
				Value(category),
		),
	)
}

func validateInterval(text string) error {
	if _, err := persistence.ParseInterval(text); err != nil {
		return errors.New("enter a whole number of minutes greater than 0")
	}
	return nil
}

func validateImagePath(path string) error {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil
	}
	info, err := os.Stat(path)
	if err != nil || info.IsDir() {
		return errors.New("image file not found")
	}
	return nil
}

func (m *Model) openSettingsForm() (tea.Model, tea.Cmd) {
	settings := m.state.Settings
	m.draft = formDraft{
		enabled:  settings.NotificationEnabled,
		interval: strconv.Itoa(settings.NotificationIntervalMinutes),
		category: settings.SelectedCategory,
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	categories := m.ctl.Categories(ctx)

	m.form = SettingsForm(&m.draft.enabled, &m.draft.interval, &m.draft.category, categories).
		WithWidth(m.formWidth())
	m.mode = modeSettings
	return m, m.form.Init()
}

func (m *Model) openAddForm() (tea.Model, tea.Cmd) {
	m.draft = formDraft{}
	m.form = huh.NewForm(
		huh.NewGroup(
			huh.NewText().
				Title("Message").
				CharLimit(500).
				Value(&m.draft.message),
			huh.NewInput().
				Title("Image").
				Description("Path to an image file (optional)").
				Value(&m.draft.image).
				Validate(validateImagePath),
		),
	).WithWidth(m.formWidth())
	m.mode = modeAddPair
	return m, m.form.Init()
}

func (m *Model) openEditForm() (tea.Model, tea.Cmd) {
	pair := m.selectedPair()
	if pair == nil {
		return m, nil
	}
	m.draft = formDraft{pairID: pair.ID, message: pair.Message}
	m.form = huh.NewForm(
		huh.NewGroup(
			huh.NewText().
				Title("Edit message").
				CharLimit(500).
				Value(&m.draft.message),
		),
	).WithWidth(m.formWidth())
	m.mode = modeEditMessage
	return m, m.form.Init()
}

func (m *Model) openImageForm() (tea.Model, tea.Cmd) {
	pair := m.selectedPair()
	if pair == nil {
		return m, nil
	}
	m.draft = formDraft{pairID: pair.ID, image: pair.ImageReference}
	m.form = huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Change image").
				Description("Path to an image file, empty to remove it").
				Value(&m.draft.image).
				Validate(validateImagePath),
		),
	).WithWidth(m.formWidth())
	m.mode = modeEditImage
	return m, m.form.Init()
}

func (m *Model) updateForm(msg tea.Msg) (tea.Model, tea.Cmd) {
	if m.form == nil {
		m.mode = modeList
		return m, nil
	}

	mdl, cmd := m.form.Update(msg)
	if f, ok := mdl.(*huh.Form); ok {
		m.form = f
	}

	switch m.form.State {
	case huh.StateCompleted:
		return m, m.submitForm()
	case huh.StateAborted:
		m.closeForm()
		return m, nil
	}
	return m, cmd
}

func (m *Model) submitForm() tea.Cmd {
	done := m.mode
	draft := m.draft
	m.closeForm()

	switch done {
	case modeSettings:
		return m.applySettingsCmd(draft)
	case modeAddPair:
		m.addPair(draft)
	case modeEditMessage:
		if err := m.ctl.Library().UpdateMessage(draft.pairID, draft.message); err != nil {
			m.setStatus(fmt.Sprintf("Failed to save message: %v", err), statusError)
		} else {
			m.setStatus("Message updated", statusSuccess)
		}
		m.reload()
	case modeEditImage:
		m.changeImage(draft)
	}
	return nil
}

// changeImage imports the chosen file and points the pair at the copy. An
// unchanged path is kept as is.
func (m *Model) changeImage(draft formDraft) {
	library := m.ctl.Library()
	pair, ok := library.Get(draft.pairID)
	if !ok {
		m.setStatus("That message no longer exists", statusError)
		m.reload()
		return
	}

	image := strings.TrimSpace(draft.image)
	if image == "" && pair.Message == "" {
		m.setStatus("Please enter a message or select an image", statusError)
		return
	}
	if image != "" && image != pair.ImageReference {
		stored, err := library.ImportImage(image)
		if err != nil {
			m.setStatus(err.Error(), statusError)
			return
		}
		image = stored
	}

	if err := library.UpdateImage(pair.ID, image); err != nil {
		m.setStatus(fmt.Sprintf("Failed to save image: %v", err), statusError)
	} else {
		m.setStatus("Image updated", statusSuccess)
	}
	m.reload()
}

func (m *Model) addPair(draft formDraft) {
	library := m.ctl.Library()
	image := strings.TrimSpace(draft.image)
	if image != "" {
		stored, err := library.ImportImage(image)
		if err != nil {
			m.setStatus(err.Error(), statusError)
			return
		}
		image = stored
	}

	pair, err := library.Add(draft.message, image)
	switch {
	case errors.Is(err, content.ErrEmptyPair):
		m.setStatus("Please enter a message or select an image", statusError)
		return
	case err != nil:
		m.setStatus(fmt.Sprintf("Failed to save: %v", err), statusError)
	default:
		m.setStatus(fmt.Sprintf("Added %s", pairLabel(pair)), statusSuccess)
	}
	m.reload()
	m.selectedIndex = len(m.pairs) - 1
	m.ensureSelectionBounds()
}

func (m *Model) applySettingsCmd(draft formDraft) tea.Cmd {
	ctl := m.ctl
	input := reminder.SettingsInput{
		Enabled:  draft.enabled,
		Interval: draft.interval,
		Category: draft.category,
	}
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := ctl.ApplySettings(ctx, input); err != nil {
			return actionResultMsg{Err: err}
		}
		return actionResultMsg{Text: "Settings saved"}
	}
}

func (m *Model) closeForm() {
	m.form = nil
	m.mode = modeList
}

func (m *Model) formWidth() int {
	if m.width <= 0 {
		return 60
	}
	return min(m.width-4, 80)
}
