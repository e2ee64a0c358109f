package preferences

import (
	"strconv"
	"strings"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/layout"
	"fyne.io/fyne/v2/widget"
)

// Window handles the preferences UI.
type Window struct {
	window        fyne.Window
	settings      Settings
	onSave        func(Settings)
	work          *widget.Entry
	shortBreak    *widget.Entry
	longBreak     *widget.Entry
	cycles        *widget.Entry
	serverURL     *widget.Entry
	token         *widget.Entry
	taskID        *widget.Entry
	notifications *widget.Check
}

// New creates a preferences window.
func New(app fyne.App, settings Settings, onSave func(Settings)) *Window {
	window := app.NewWindow("Focus Matrix Settings")

	prefs := &Window{
		window:        window,
		onSave:        onSave,
		work:          widget.NewEntry(),
		shortBreak:    widget.NewEntry(),
		longBreak:     widget.NewEntry(),
		cycles:        widget.NewEntry(),
		serverURL:     widget.NewEntry(),
		token:         widget.NewPasswordEntry(),
		taskID:        widget.NewEntry(),
		notifications: widget.NewCheck("Notify when a phase ends", nil),
	}
	prefs.serverURL.SetPlaceHolder("empty = local only")
	prefs.UpdateSettings(settings)

	form := container.NewVBox(
		widget.NewLabelWithStyle("Timer", fyne.TextAlignLeading, fyne.TextStyle{Bold: true}),
		container.NewHBox(widget.NewLabel("Work"), prefs.work, widget.NewLabel("min")),
		container.NewHBox(widget.NewLabel("Short break"), prefs.shortBreak, widget.NewLabel("min")),
		container.NewHBox(widget.NewLabel("Long break"), prefs.longBreak, widget.NewLabel("min")),
		container.NewHBox(widget.NewLabel("Long break after"), prefs.cycles, widget.NewLabel("cycles")),
		prefs.notifications,
		widget.NewLabelWithStyle("Sync", fyne.TextAlignLeading, fyne.TextStyle{Bold: true}),
		widget.NewForm(
			widget.NewFormItem("Server URL", prefs.serverURL),
			widget.NewFormItem("Token", prefs.token),
			widget.NewFormItem("Task ID", prefs.taskID),
		),
		widget.NewLabel("Changes apply on next launch."),
	)

	saveButton := widget.NewButton("Save", prefs.handleSave)
	cancelButton := widget.NewButton("Cancel", window.Hide)
	buttons := container.NewHBox(saveButton, layout.NewSpacer(), cancelButton)

	window.SetContent(container.NewBorder(nil, buttons, nil, nil, form))
	window.Resize(fyne.NewSize(420, 460))
	window.SetCloseIntercept(window.Hide)
	return prefs
}

// Show displays the preferences window.
func (prefs *Window) Show() {
	prefs.window.Show()
	prefs.window.RequestFocus()
}

// UpdateSettings replaces window values.
func (prefs *Window) UpdateSettings(settings Settings) {
	prefs.settings = settings
	prefs.work.SetText(strconv.Itoa(settings.WorkMinutes))
	prefs.shortBreak.SetText(strconv.Itoa(settings.ShortBreakMinutes))
	prefs.longBreak.SetText(strconv.Itoa(settings.LongBreakMinutes))
	prefs.cycles.SetText(strconv.Itoa(settings.CyclesBeforeLongBreak))
	prefs.serverURL.SetText(settings.ServerURL)
	prefs.token.SetText(settings.Token)
	prefs.taskID.SetText(settings.TaskID)
	prefs.notifications.SetChecked(settings.Notifications)
}

func (prefs *Window) handleSave() {
	settings := prefs.settings

	if minutes, ok := parsePositiveInt(prefs.work.Text); ok {
		settings.WorkMinutes = minutes
	}
	if minutes, ok := parsePositiveInt(prefs.shortBreak.Text); ok {
		settings.ShortBreakMinutes = minutes
	}
	if minutes, ok := parsePositiveInt(prefs.longBreak.Text); ok {
		settings.LongBreakMinutes = minutes
	}
	if cycles, ok := parsePositiveInt(prefs.cycles.Text); ok {
		settings.CyclesBeforeLongBreak = cycles
	}
	settings.ServerURL = strings.TrimSpace(prefs.serverURL.Text)
	settings.Token = strings.TrimSpace(prefs.token.Text)
	settings.TaskID = strings.TrimSpace(prefs.taskID.Text)
	settings.Notifications = prefs.notifications.Checked

	prefs.settings = settings
	if prefs.onSave != nil {
		prefs.onSave(settings)
	}
	prefs.window.Hide()
}

func parsePositiveInt(value string) (int, bool) {
	parsed, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil || parsed <= 0 {
		return 0, false
	}
	return parsed, true
}
