package constant

// Plugin entry points looked up in a plugin's global namespace.
const (
	PluginSetupFn    = "setup"
	PluginTeardownFn = "teardown"
)

// PluginExtension is the file extension of plugin units.
const PluginExtension = ".lua"

// PluginTemplate is a Go text/template for scaffolding new plugin units.
const PluginTemplate = `{{ $divider := repeat "-" (plus (max (len .Name) (len .Author) 3) 12) }}{{ $divider }}
-- @name    {{ .Name }}
-- @author  {{ .Author }}
-- @license MIT
{{ $divider }}

---@alias item { id: string, name: string, url: string, type: string }
---@alias event { kind: string, item: item?, index: number, length: number, state: string }

local tokens = {}

--- Called once when the plugin is loaded.
-- @param session table Session handle
function {{ .SetupFn }}(session)
	session.log("{{ .Name }} loaded")

	table.insert(tokens, session.subscribe("item_loaded", function(event)
		session.log("now playing: " .. event.item.name)
	end))
end

--- Called before the plugin is unloaded.
-- @param session table Session handle
function {{ .TeardownFn }}(session)
	for _, token in ipairs(tokens) do
		session.unsubscribe(token)
	end
end

-- ex: ts=4 sw=4 et filetype=lua
`
