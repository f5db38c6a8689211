package plugin

import (
	"sync"
	"time"

	"github.com/yks-player/yks/filesystem"
	lua "github.com/yuin/gopher-lua"
	"github.com/yuin/gopher-lua/parse"
)

type compiled struct {
	size    int64
	modTime time.Time
	proto   *lua.FunctionProto
}

// protos caches compiled units by path. An entry is reused only while the file's size
// and modification time are unchanged, so edited units are recompiled on reload.
var protos sync.Map

func compile(path string) (*lua.FunctionProto, error) {
	info, err := filesystem.API().Stat(path)
	if err != nil {
		return nil, err
	}

	if cached, ok := protos.Load(path); ok {
		entry := cached.(compiled)
		if entry.size == info.Size() && entry.modTime.Equal(info.ModTime()) {
			return entry.proto, nil
		}
	}

	file, err := filesystem.API().Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	chunk, err := parse.Parse(file, path)
	if err != nil {
		return nil, err
	}

	proto, err := lua.Compile(chunk, path)
	if err != nil {
		return nil, err
	}

	protos.Store(path, compiled{size: info.Size(), modTime: info.ModTime(), proto: proto})
	return proto, nil
}
