package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"sync/atomic"
	"time"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/app"
	"fyne.io/fyne/v2/driver/desktop"

	"focusmatrix/internal/core/model"
	"focusmatrix/internal/core/session"
	"focusmatrix/internal/core/timer"
	"focusmatrix/internal/platform"
	"focusmatrix/internal/remote"
	"focusmatrix/internal/storage"
	"focusmatrix/internal/ui/preferences"
	"focusmatrix/internal/ui/timerview"
	"focusmatrix/internal/ui/tray"
)

const (
	appName  = "focusmatrix"
	appTitle = "Focus Matrix"
)

func main() {
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)

	guard, err := platform.AcquireSingleInstance(appName)
	if err != nil {
		if errors.Is(err, platform.ErrAlreadyRunning) {
			slog.Info("already running, activated existing window")
			return
		}
		slog.Error("single instance", "error", err)
		os.Exit(1)
	}
	defer func() {
		_ = guard.Release()
	}()

	settings, err := storage.LoadSettings(appName)
	if err != nil {
		slog.Warn("load settings, using defaults", "error", err)
	}

	fyneApp := app.NewWithID("com.focusmatrix.app")

	var engine *timer.Engine
	var synchronizer *session.Synchronizer
	var taskTitle atomic.Value
	taskTitle.Store("")

	view := timerview.New(fyneApp, appTitle, timerview.Controls{
		OnStart: func() { engine.Start() },
		OnPause: func() { engine.Pause() },
		OnStop:  func() { engine.Stop() },
		OnSkip:  func() { engine.Skip() },
	})

	var client *remote.Client
	var remoteSync timer.Synchronizer
	if settings.Synced() {
		client = remote.NewClient(settings.ServerURL, settings.Token)
		synchronizer = session.New(client, session.Options{
			Logger: logger,
			Notifier: session.NotifierFunc(func(notice session.Notice) {
				view.ShowNotice(notice)
			}),
			Progress: session.ProgressFunc(func(progress model.TaskProgress) {
				view.SetTaskProgress(taskTitle.Load().(string), progress)
			}),
		})
		remoteSync = synchronizer
	}

	engine, err = timer.New(settings.TimerConfig(), settings.TaskID, remoteSync, timer.Options{Logger: logger})
	if err != nil {
		slog.Error("invalid timer configuration", "error", err)
		os.Exit(1)
	}
	defer engine.Close()

	prefsWindow := preferences.New(fyneApp, settings, func(updated preferences.Settings) {
		if err := storage.SaveSettings(appName, updated); err != nil {
			slog.Error("save settings", "error", err)
			view.ShowNotice(session.Notice{Level: session.LevelError, Message: "Could not save settings"})
			return
		}
		view.ShowNotice(session.Notice{Level: session.LevelInfo, Message: "Settings saved, restart to apply"})
	})

	quit := func() {
		engine.Close()
		if synchronizer != nil {
			ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
			defer cancel()
			if err := synchronizer.Shutdown(ctx); err != nil {
				slog.Warn("session shutdown", "error", err)
			}
		}
		fyneApp.Quit()
	}

	var trayManager *tray.Manager
	if desktopApp, ok := fyneApp.(desktop.App); ok {
		trayManager = tray.New(desktopApp, tray.Callbacks{
			OnShow:        view.Show,
			OnStart:       engine.Start,
			OnPause:       engine.Pause,
			OnStop:        engine.Stop,
			OnSkip:        engine.Skip,
			OnPreferences: prefsWindow.Show,
			OnQuit:        quit,
		})
		view.Window().SetCloseIntercept(view.Window().Hide)
	} else {
		slog.Info("system tray unsupported on this platform")
		view.Window().SetCloseIntercept(quit)
	}

	guard.OnActivate(func() {
		fyne.Do(view.Show)
	})

	events := engine.Subscribe(16)
	go func() {
		for event := range events {
			handleEvent(event, fyneApp, view, trayManager, settings.Notifications)
		}
	}()

	if client != nil && settings.TaskID != "" {
		go loadTask(client, settings.TaskID, &taskTitle, view)
	} else if settings.TaskID == "" {
		view.ShowNotice(session.Notice{Level: session.LevelWarning, Message: "No task selected, sessions will not be recorded"})
	}

	view.Render(engine.Snapshot())
	view.Show()
	fyneApp.Run()
}

func handleEvent(event timer.Event, fyneApp fyne.App, view *timerview.Window, trayManager *tray.Manager, notify bool) {
	switch event.Type {
	case timer.EventDisplay:
		view.Render(event.Snapshot)
		if trayManager != nil {
			snapshot := event.Snapshot
			fyne.Do(func() {
				trayManager.Update(snapshot)
			})
		}
	case timer.EventPhaseComplete:
		slog.Info("phase complete", "completed", event.Completed, "next", event.Snapshot.Phase)
		if notify {
			notification := fyne.NewNotification(event.Completed.Label()+" finished", event.Message)
			fyne.Do(func() {
				fyneApp.SendNotification(notification)
			})
		}
		view.ShowNotice(session.Notice{Level: session.LevelInfo, Message: event.Message})
	}
}

func loadTask(client *remote.Client, taskID string, title *atomic.Value, view *timerview.Window) {
	ctx, cancel := context.WithTimeout(context.Background(), session.DefaultTimeout)
	defer cancel()

	task, err := client.GetTask(ctx, taskID)
	if err != nil {
		slog.Warn("load task", "task_id", taskID, "error", err)
		view.ShowNotice(session.Notice{Level: session.LevelWarning, Message: "Could not load task progress"})
		return
	}
	title.Store(task.Title)
	view.SetTaskProgress(task.Title, task.Progress())
}
