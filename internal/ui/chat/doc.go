// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

/*
Package chat provides the Jaime chat shell, the Bubble Tea model that ties
the transcript, the stream controller and the scroll controller to the
terminal.

# Key Components

## Model (model.go)

The Model owns one transcript store and one stream controller. It holds
the layout (compact or expanded), the textarea input, the transcript
viewport, the "thinking" spinner, and the header, banner and suggested
prompt components.

## Update Loop (update.go)

Keyboard input, stream events and timers all arrive as messages:
  - enter submits; alt+enter or ctrl+j inserts a newline
  - esc or ctrl+c stops a reply in flight; esc otherwise dismisses the banner
  - ctrl+n starts a new chat, ctrl+e toggles the layout, ctrl+y copies the
    last reply
  - alt+1..4 submit a suggested prompt; tab cycles them on an empty input

A submit hands the session's event channel to listen, which reads one
event per command. Batched chunks are released by a flush tick and an
exchange past its maximum duration is expired by a second tick.

## View Rendering (view.go)

Replies are parsed as markdown on every paint and drawn by the render
painter. Final turns are cached per width (viewport_cache.go), so only the
streaming turn is repainted while chunks arrive.

# Usage

	m := chat.New(styles.NewTheme(), svc, cfg, logger)
	p := tea.NewProgram(m, tea.WithAltScreen(), tea.WithMouseCellMotion())
	if _, err := p.Run(); err != nil {
		return err
	}
*/
package chat
