//go:build js && wasm

package main

import (
	"encoding/json"
	"syscall/js"

	"github.com/rfaga/storyteller/internal/asset"
	"github.com/rfaga/storyteller/internal/document"
	"github.com/rfaga/storyteller/internal/editor"
	"github.com/rfaga/storyteller/internal/geom"
	"github.com/rfaga/storyteller/internal/render"
	"github.com/rfaga/storyteller/internal/tool"
	"github.com/rfaga/storyteller/internal/typeid"
)

var (
	session *editor.Session
	surface *render.CommandSurface
)

func main() {
	textures := render.NewMemoryTextures()
	surface = render.NewCommandSurface()
	session = editor.New(typeid.NewSessionID(),
		editor.WithRenderer(render.NewAdapter(surface, textures)),
		editor.WithImporter(asset.NewPipeline(textures, "")),
	)

	api := js.Global().Get("Object").New()

	// --- Commands (frontend → editor) ---
	api.Set("setTool", js.FuncOf(setTool))
	api.Set("pointerDown", js.FuncOf(pointer(session.PointerDown)))
	api.Set("pointerMove", js.FuncOf(pointer(session.PointerMove)))
	api.Set("pointerUp", js.FuncOf(pointer(session.PointerUp)))
	api.Set("pointerLeave", js.FuncOf(pointerLeave))
	api.Set("select", js.FuncOf(selectObject))
	api.Set("delete", js.FuncOf(deleteObject))
	api.Set("update", js.FuncOf(updateObject))
	api.Set("loadScene", js.FuncOf(loadScene))
	api.Set("loadSample", js.FuncOf(loadSample))
	api.Set("importImage", js.FuncOf(importImage))
	api.Set("subscribe", js.FuncOf(subscribe))

	// --- Queries (frontend ← editor) ---
	api.Set("render", js.FuncOf(renderFrame))
	api.Set("getObjects", js.FuncOf(getObjects))
	api.Set("getCode", js.FuncOf(getCode))
	api.Set("getState", js.FuncOf(getState))

	js.Global().Set("storytellerEditor", api)
	js.Global().Set("storytellerWasmReady", js.ValueOf(true))

	// Keep Go runtime alive
	select {}
}

func errorResult(err error) interface{} {
	return js.ValueOf(map[string]interface{}{"error": err.Error()})
}

func okResult() interface{} {
	return js.ValueOf(map[string]interface{}{"ok": true})
}

func toJSON(v interface{}) interface{} {
	data, err := json.Marshal(v)
	if err != nil {
		return js.ValueOf("null")
	}
	return js.ValueOf(string(data))
}

// --- Command Handlers ---

func setTool(this js.Value, args []js.Value) interface{} {
	if len(args) < 1 {
		return js.ValueOf(map[string]interface{}{"error": "missing tool"})
	}
	t, err := tool.Parse(args[0].String())
	if err != nil {
		return errorResult(err)
	}
	session.SetTool(t)
	return okResult()
}

func pointer(fn func(geom.Point)) func(js.Value, []js.Value) interface{} {
	return func(this js.Value, args []js.Value) interface{} {
		if len(args) < 2 {
			return nil
		}
		fn(geom.Pt(args[0].Float(), args[1].Float()))
		return nil
	}
}

func pointerLeave(this js.Value, args []js.Value) interface{} {
	session.PointerLeave()
	return nil
}

func selectObject(this js.Value, args []js.Value) interface{} {
	if len(args) < 1 || args[0].Type() != js.TypeString {
		session.ClearSelection()
		return js.ValueOf(true)
	}
	return js.ValueOf(session.Select(args[0].String()))
}

func deleteObject(this js.Value, args []js.Value) interface{} {
	id := ""
	if len(args) > 0 && args[0].Type() == js.TypeString {
		id = args[0].String()
	}
	return js.ValueOf(session.Delete(id))
}

func updateObject(this js.Value, args []js.Value) interface{} {
	if len(args) < 2 {
		return js.ValueOf(map[string]interface{}{"error": "missing id or patch JSON"})
	}
	var patch document.Patch
	if err := json.Unmarshal([]byte(args[1].String()), &patch); err != nil {
		return errorResult(err)
	}
	return js.ValueOf(session.Update(args[0].String(), patch))
}

func loadScene(this js.Value, args []js.Value) interface{} {
	if len(args) < 1 {
		return js.ValueOf(map[string]interface{}{"error": "missing objects JSON"})
	}
	var objects []document.Object
	if err := json.Unmarshal([]byte(args[0].String()), &objects); err != nil {
		return errorResult(err)
	}
	session.ReplaceAll(objects)
	return okResult()
}

func loadSample(this js.Value, args []js.Value) interface{} {
	session.ReplaceAll(document.NewSampleScene())
	return okResult()
}

// importImage takes a Uint8Array of encoded image bytes.
func importImage(this js.Value, args []js.Value) interface{} {
	if len(args) < 1 {
		return js.ValueOf(map[string]interface{}{"error": "missing image bytes"})
	}
	data := make([]byte, args[0].Get("length").Int())
	js.CopyBytesToGo(data, args[0])

	obj, err := session.ImportImage(data)
	if err != nil {
		return errorResult(err)
	}
	return toJSON(obj)
}

// subscribe registers a callback receiving (objectsJSON, generatedCode).
func subscribe(this js.Value, args []js.Value) interface{} {
	if len(args) < 1 || args[0].Type() != js.TypeFunction {
		return nil
	}
	cb := args[0]
	session.Subscribe(func(ch editor.Change) {
		objects, err := json.Marshal(ch.Objects)
		if err != nil {
			return
		}
		cb.Invoke(string(objects), ch.GeneratedCode)
	})
	return nil
}

// --- Query Handlers ---

func renderFrame(this js.Value, args []js.Value) interface{} {
	out, err := render.CommandsToJSON(surface.Commands())
	if err != nil {
		return js.ValueOf("[]")
	}
	return js.ValueOf(out)
}

func getObjects(this js.Value, args []js.Value) interface{} {
	return toJSON(session.Objects())
}

func getCode(this js.Value, args []js.Value) interface{} {
	return js.ValueOf(session.Code())
}

func getState(this js.Value, args []js.Value) interface{} {
	return toJSON(session.State())
}
