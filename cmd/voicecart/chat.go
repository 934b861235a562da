// This file launches the interactive chat interface using bubbletea.
package main

import (
	tea "github.com/charmbracelet/bubbletea"

	"voicecart/internal/ui"
)

func runInteractiveChat() error {
	loc := ui.NewLocation()

	app, err := buildApp(loc)
	if err != nil {
		return err
	}
	defer app.Close()

	theme := ui.DetectTheme()
	switch app.Config.Theme {
	case "light":
		theme = ui.LightTheme()
	case "dark":
		theme = ui.DarkTheme()
	}

	p := tea.NewProgram(
		ui.NewChatModel(app.Pipeline, app.Store, loc, theme),
		tea.WithAltScreen(),
		tea.WithMouseCellMotion(),
	)

	_, err = p.Run()
	return err
}
