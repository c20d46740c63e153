// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

/*
Package cli implements the jaime command tree.

Running jaime with no subcommand opens the full-screen chat. The other
commands cover scripted and line-mode use:

	jaime                        full-screen chat
	jaime ask "question"         one question, reply on stdout
	jaime chat --plain           line-mode chat with input history
	jaime config show|path|init  inspect or create the config file
	jaime devserver              run the local scripted completion server
	jaime version                print build information

Global flags (--config, --provider, --model, --layout, --debug) are applied
over the config file and environment before any command runs.

Output written to a terminal is rendered as markdown with glamour. Piped
output is the raw reply text, streamed as it arrives.
*/
package cli
