package template

import (
	"encoding/json"
	"fmt"

	lua "github.com/yuin/gopher-lua"
)

// LoadLua runs a Lua template script. The script either defines a global
// function getTemplate(size) returning the template table, or assigns the
// table to a global named template. The resulting table goes through the same
// schema validation as JSON templates.
func LoadLua(source string, size int) (*Template, error) {
	L := lua.NewState()
	defer L.Close()

	if err := L.DoString(source); err != nil {
		return nil, fmt.Errorf("run template script: %w", err)
	}

	var table lua.LValue
	if fn, ok := L.GetGlobal("getTemplate").(*lua.LFunction); ok {
		if err := L.CallByParam(lua.P{Fn: fn, NRet: 1, Protect: true}, lua.LNumber(size)); err != nil {
			return nil, fmt.Errorf("call getTemplate: %w", err)
		}
		table = L.Get(-1)
		L.Pop(1)
	} else {
		table = L.GetGlobal("template")
	}

	if _, ok := table.(*lua.LTable); !ok {
		return nil, fmt.Errorf("template script must define getTemplate(size) or a global template table, got %s", table.Type())
	}

	data, err := json.Marshal(luaValueToGo(table))
	if err != nil {
		return nil, fmt.Errorf("encode template table: %w", err)
	}
	return Parse(data)
}

// luaValueToGo converts a Lua value to a JSON-shaped Go value.
func luaValueToGo(value lua.LValue) interface{} {
	switch v := value.(type) {
	case *lua.LNilType:
		return nil
	case lua.LBool:
		return bool(v)
	case lua.LNumber:
		num := float64(v)
		if num == float64(int64(num)) {
			return int64(num)
		}
		return num
	case lua.LString:
		return string(v)
	case *lua.LTable:
		if isLuaArray(v) {
			return luaTableToSlice(v)
		}
		return luaTableToMap(v)
	default:
		return v.String()
	}
}

// isLuaArray reports whether a table has only the keys 1..n. Empty tables
// count as arrays.
func isLuaArray(table *lua.LTable) bool {
	length := table.Len()
	array := true
	table.ForEach(func(key, _ lua.LValue) {
		n, ok := key.(lua.LNumber)
		if !ok || int(n) < 1 || int(n) > length || float64(n) != float64(int(n)) {
			array = false
		}
	})
	return array
}

func luaTableToSlice(table *lua.LTable) []interface{} {
	length := table.Len()
	result := make([]interface{}, length)
	for i := 1; i <= length; i++ {
		result[i-1] = luaValueToGo(table.RawGetInt(i))
	}
	return result
}

func luaTableToMap(table *lua.LTable) map[string]interface{} {
	result := make(map[string]interface{})
	table.ForEach(func(key, value lua.LValue) {
		result[fmt.Sprintf("%v", luaValueToGo(key))] = luaValueToGo(value)
	})
	return result
}
