package plugin

import (
	"context"
	"errors"
	"fmt"

	lua "github.com/yuin/gopher-lua"
)

// luaPlugin is a script that returns a table:
//
//	return {
//	  title = "Clipboard",
//	  is_submenu = true,
//	  run = function(dmenu) ... end,
//	}
//
// The same api table is also available as the global "dmenu".
type luaPlugin struct {
	basePlugin
	state *lua.LState
	run   *lua.LFunction
}

// LoadLua executes the script at path and reads the plugin table it returns
func LoadLua(path string) (Plugin, error) {
	L := lua.NewState()
	if err := L.DoFile(path); err != nil {
		L.Close()
		return nil, err
	}

	tbl, ok := L.Get(-1).(*lua.LTable)
	if !ok {
		L.Close()
		return nil, errors.New("script must return a table")
	}
	L.Pop(1)

	title, ok := tbl.RawGetString("title").(lua.LString)
	if !ok {
		L.Close()
		return nil, errors.New("title must be a string")
	}
	run, ok := tbl.RawGetString("run").(*lua.LFunction)
	if !ok {
		L.Close()
		return nil, errors.New("run must be a function")
	}

	return &luaPlugin{
		basePlugin: basePlugin{
			title:   string(title),
			submenu: lua.LVAsBool(tbl.RawGetString("is_submenu")),
		},
		state: L,
		run:   run,
	}, nil
}

func (p *luaPlugin) Run(ctx context.Context, host Host) error {
	L := p.state
	L.SetContext(ctx)
	defer L.RemoveContext()

	api := newLuaAPI(ctx, L, host)
	L.SetGlobal("dmenu", api)

	if err := L.CallByParam(lua.P{Fn: p.run, NRet: 0, Protect: true}, api); err != nil {
		return fmt.Errorf("%s: %w", p.title, err)
	}
	return nil
}

func (p *luaPlugin) Close() error {
	p.state.Close()
	return nil
}

// newLuaAPI exposes the host to scripts. Functions that can fail return
// nil plus an error message, the usual Lua convention.
func newLuaAPI(ctx context.Context, L *lua.LState, host Host) *lua.LTable {
	api := L.NewTable()

	result := func(L *lua.LState, err error) int {
		if err != nil {
			L.Push(lua.LNil)
			L.Push(lua.LString(err.Error()))
			return 2
		}
		L.Push(lua.LTrue)
		return 1
	}

	L.SetField(api, "menu", L.NewFunction(func(L *lua.LState) int {
		out, err := host.Menu(ctx, luaStrings(L.OptTable(1, L.NewTable())), L.OptString(2, ""))
		if err != nil {
			return result(L, err)
		}
		L.Push(lua.LString(out))
		return 1
	}))

	// select returns the chosen item and its 1-based index, or nil
	L.SetField(api, "select", L.NewFunction(func(L *lua.LState) int {
		items := luaStrings(L.OptTable(1, L.NewTable()))
		i, err := host.Select(ctx, items, L.OptString(2, ""))
		if err != nil {
			return result(L, err)
		}
		if i < 0 {
			L.Push(lua.LNil)
			return 1
		}
		L.Push(lua.LString(items[i]))
		L.Push(lua.LNumber(i + 1))
		return 2
	}))

	L.SetField(api, "open_file", L.NewFunction(func(L *lua.LState) int {
		return result(L, host.OpenFile(L.CheckString(1)))
	}))
	L.SetField(api, "open_directory", L.NewFunction(func(L *lua.LState) int {
		return result(L, host.OpenDirectory(L.CheckString(1)))
	}))
	L.SetField(api, "open_url", L.NewFunction(func(L *lua.LState) int {
		return result(L, host.OpenURL(L.CheckString(1)))
	}))
	L.SetField(api, "open_terminal", L.NewFunction(func(L *lua.LState) int {
		return result(L, host.OpenTerminal(L.CheckString(1), L.OptBool(2, false)))
	}))
	L.SetField(api, "execute", L.NewFunction(func(L *lua.LState) int {
		return result(L, host.Execute(ctx, L.CheckString(1), L.OptBool(2, true)))
	}))
	L.SetField(api, "rebuild_cache", L.NewFunction(func(L *lua.LState) int {
		return result(L, host.RegenerateCache(ctx, L.OptBool(1, false)))
	}))

	return api
}

func luaStrings(tbl *lua.LTable) []string {
	out := make([]string, 0, tbl.Len())
	for i := 1; i <= tbl.Len(); i++ {
		out = append(out, lua.LVAsString(tbl.RawGetInt(i)))
	}
	return out
}
