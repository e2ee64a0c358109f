// Package timerview renders the timer engine's display snapshot in a fyne window.
package timerview

import (
	"fmt"
	"image/color"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/canvas"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/layout"
	"fyne.io/fyne/v2/widget"

	"focusmatrix/internal/core/model"
	"focusmatrix/internal/core/session"
	"focusmatrix/internal/core/timer"
)

// Controls receives button presses.
type Controls struct {
	OnStart func()
	OnPause func()
	OnStop  func()
	OnSkip  func()
}

// Window manages the timer UI.
// Public methods are safe from any goroutine; they hop onto the UI thread with fyne.Do.
type Window struct {
	window       fyne.Window
	phaseLabel   *canvas.Text
	timerLabel   *canvas.Text
	cycleLabel   *canvas.Text
	phaseBar     *widget.ProgressBar
	taskLabel    *widget.Label
	taskBar      *widget.ProgressBar
	noticeLabel  *canvas.Text
	startButton  *widget.Button
	pauseButton  *widget.Button
	stopButton   *widget.Button
	skipButton   *widget.Button
	lastSnapshot timer.Snapshot
}

var (
	workColor  = color.NRGBA{R: 220, G: 76, B: 70, A: 255}
	breakColor = color.NRGBA{R: 70, G: 160, B: 110, A: 255}
	timerColor = color.NRGBA{R: 232, G: 190, B: 66, A: 255}
	infoColor  = color.NRGBA{R: 200, G: 200, B: 200, A: 255}
	warnColor  = color.NRGBA{R: 232, G: 160, B: 40, A: 255}
	errorColor = color.NRGBA{R: 230, G: 70, B: 70, A: 255}
)

// New creates the timer window.
func New(app fyne.App, title string, controls Controls) *Window {
	window := app.NewWindow(title)
	if app.Icon() != nil {
		window.SetIcon(app.Icon())
	}

	phaseLabel := canvas.NewText(model.Phase("").Label(), workColor)
	phaseLabel.Alignment = fyne.TextAlignCenter
	phaseLabel.TextStyle = fyne.TextStyle{Bold: true}
	phaseLabel.TextSize = 21

	timerLabel := canvas.NewText("--:--", timerColor)
	timerLabel.Alignment = fyne.TextAlignCenter
	timerLabel.TextStyle = fyne.TextStyle{Bold: true, Monospace: true}
	timerLabel.TextSize = 56

	cycleLabel := canvas.NewText("", infoColor)
	cycleLabel.Alignment = fyne.TextAlignCenter
	cycleLabel.TextSize = 14

	noticeLabel := canvas.NewText("", infoColor)
	noticeLabel.Alignment = fyne.TextAlignCenter
	noticeLabel.TextSize = 13

	view := &Window{
		window:      window,
		phaseLabel:  phaseLabel,
		timerLabel:  timerLabel,
		cycleLabel:  cycleLabel,
		phaseBar:    widget.NewProgressBar(),
		taskLabel:   widget.NewLabel("No task selected"),
		taskBar:     widget.NewProgressBar(),
		noticeLabel: noticeLabel,
		startButton: widget.NewButton("Start", controls.OnStart),
		pauseButton: widget.NewButton("Pause", controls.OnPause),
		stopButton:  widget.NewButton("Stop", controls.OnStop),
		skipButton:  widget.NewButton("Skip", controls.OnSkip),
	}
	view.phaseBar.Max = 100
	view.taskBar.Max = 100
	view.taskBar.Hide()

	buttons := container.NewHBox(layout.NewSpacer(),
		view.startButton, view.pauseButton, view.stopButton, view.skipButton,
		layout.NewSpacer())

	window.SetContent(container.NewPadded(container.NewVBox(
		phaseLabel,
		timerLabel,
		cycleLabel,
		view.phaseBar,
		buttons,
		widget.NewSeparator(),
		view.taskLabel,
		view.taskBar,
		noticeLabel,
	)))
	window.Resize(fyne.NewSize(360, 340))
	return view
}

// Window exposes the underlying fyne window.
func (view *Window) Window() fyne.Window {
	return view.window
}

// Show displays and focuses the window.
func (view *Window) Show() {
	view.window.Show()
	view.window.RequestFocus()
}

// Render applies a display snapshot.
func (view *Window) Render(snapshot timer.Snapshot) {
	fyne.Do(func() {
		view.renderUnsafe(snapshot)
	})
}

// SetTaskProgress shows the selected task's Pomodoro progress.
func (view *Window) SetTaskProgress(title string, progress model.TaskProgress) {
	fyne.Do(func() {
		view.setTaskProgressUnsafe(title, progress)
	})
}

// ShowNotice displays the latest synchronization notice.
func (view *Window) ShowNotice(notice session.Notice) {
	fyne.Do(func() {
		view.showNoticeUnsafe(notice)
	})
}

func (view *Window) renderUnsafe(snapshot timer.Snapshot) {
	view.lastSnapshot = snapshot

	view.phaseLabel.Text = snapshot.PhaseLabel
	view.phaseLabel.Color = phaseColor(snapshot.Phase)
	view.phaseLabel.Refresh()

	view.timerLabel.Text = snapshot.TimeText
	view.timerLabel.Refresh()

	view.cycleLabel.Text = "Cycle " + snapshot.CycleText
	view.cycleLabel.Refresh()

	view.phaseBar.SetValue(snapshot.ProgressPercent)

	setEnabled(view.startButton, snapshot.Buttons.Start)
	setEnabled(view.pauseButton, snapshot.Buttons.Pause)
	setEnabled(view.skipButton, snapshot.Buttons.Skip)

	view.window.SetTitle(fmt.Sprintf("%s %s", snapshot.TimeText, snapshot.PhaseLabel))
}

func (view *Window) setTaskProgressUnsafe(title string, progress model.TaskProgress) {
	if title == "" {
		title = "Task"
	}
	view.taskLabel.SetText(fmt.Sprintf("%s: %d/%d pomodoros", title, progress.Completed, progress.Estimated))
	view.taskBar.SetValue(progress.Percent())
	view.taskBar.Show()
}

func (view *Window) showNoticeUnsafe(notice session.Notice) {
	view.noticeLabel.Text = notice.Message
	view.noticeLabel.Color = noticeColor(notice.Level)
	view.noticeLabel.Refresh()
}

func setEnabled(button *widget.Button, enabled bool) {
	if enabled {
		button.Enable()
		return
	}
	button.Disable()
}

func phaseColor(phase model.Phase) color.Color {
	if phase.IsBreak() {
		return breakColor
	}
	return workColor
}

func noticeColor(level session.Level) color.Color {
	switch level {
	case session.LevelWarning:
		return warnColor
	case session.LevelError:
		return errorColor
	default:
		return infoColor
	}
}
