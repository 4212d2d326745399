package debugui

import (
	"fmt"
	"reflect"
	"unsafe"

	"github.com/AllenDang/cimgui-go/imgui"
	"github.com/plus3/quiver/ecs"
)

// ComponentInspector shows and edits the components of the selected entity.
// Edits write straight through descriptor-resolved pointers into storage.
type ComponentInspector struct {
	selected ecs.EntityRef
}

func NewComponentInspector() ComponentInspector {
	return ComponentInspector{}
}

func (ci *ComponentInspector) Render(world *ecs.World, selected ecs.EntityRef) {
	if !imgui.BeginV("Component Inspector", nil, imgui.WindowFlagsNone) {
		imgui.End()
		return
	}

	ci.selected = selected

	if selected.Host() == nil {
		imgui.Text("No entity selected")
		imgui.End()
		return
	}
	if !selected.IsValid() {
		imgui.Text("Selected entity was released")
		imgui.End()
		return
	}

	host := selected.Host()
	imgui.Text(fmt.Sprintf("Slot: %d (gen %d)", selected.Slot().Index(), selected.Slot().Generation()))
	imgui.Text(fmt.Sprintf("Archetype: 0x%X", host.ArchetypeIndex()))
	imgui.Separator()

	_ = host.VisitComponents(selected.Slot(), func(typ reflect.Type, ptr unsafe.Pointer) bool {
		if imgui.TreeNodeStr(typ.String()) {
			ci.renderComponent(reflect.NewAt(typ, ptr).Elem())
			imgui.TreePop()
		}
		return true
	})

	imgui.End()
}

func (ci *ComponentInspector) renderComponent(val reflect.Value) {
	if val.Kind() != reflect.Struct {
		ci.renderValue("Value", val)
		return
	}

	fields := globalReflectionCache.GetFields(val.Type())
	for _, field := range fields {
		fieldVal := val.Field(field.Index)
		if field.IsPointer {
			if fieldVal.IsNil() {
				imgui.Text(fmt.Sprintf("%s: nil", field.Name))
				continue
			}
			fieldVal = fieldVal.Elem()
		}
		ci.renderValue(field.Name, fieldVal)
	}
}

// renderValue draws one editable widget for the value; settable values are
// mutated in place.
func (ci *ComponentInspector) renderValue(name string, val reflect.Value) {
	if !val.IsValid() {
		imgui.Text(fmt.Sprintf("%s: <invalid>", name))
		return
	}

	switch val.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		v := int32(val.Int())
		imgui.Text(fmt.Sprintf("%s:", name))
		imgui.SameLine()
		imgui.SetNextItemWidth(150)
		if imgui.InputInt(fmt.Sprintf("##%s", name), &v) && val.CanSet() {
			val.SetInt(int64(v))
		}

	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		v := int32(val.Uint())
		imgui.Text(fmt.Sprintf("%s:", name))
		imgui.SameLine()
		imgui.SetNextItemWidth(150)
		if imgui.InputInt(fmt.Sprintf("##%s", name), &v) && v >= 0 && val.CanSet() {
			val.SetUint(uint64(v))
		}

	case reflect.Float32, reflect.Float64:
		v := float32(val.Float())
		imgui.Text(fmt.Sprintf("%s:", name))
		imgui.SameLine()
		imgui.SetNextItemWidth(150)
		if imgui.InputFloat(fmt.Sprintf("##%s", name), &v) && val.CanSet() {
			val.SetFloat(float64(v))
		}

	case reflect.Bool:
		v := val.Bool()
		if imgui.Checkbox(name, &v) && val.CanSet() {
			val.SetBool(v)
		}

	case reflect.String:
		v := val.String()
		imgui.Text(fmt.Sprintf("%s:", name))
		imgui.SameLine()
		imgui.SetNextItemWidth(200)
		if imgui.InputTextWithHint(fmt.Sprintf("##%s", name), "", &v, imgui.InputTextFlagsNone, nil) && val.CanSet() {
			val.SetString(v)
		}

	case reflect.Struct:
		if imgui.TreeNodeStr(name) {
			nestedFields := globalReflectionCache.GetFields(val.Type())
			for _, nf := range nestedFields {
				nestedVal := val.Field(nf.Index)
				if nf.IsPointer {
					if nestedVal.IsNil() {
						imgui.Text(fmt.Sprintf("%s: nil", nf.Name))
						continue
					}
					nestedVal = nestedVal.Elem()
				}
				ci.renderValue(nf.Name, nestedVal)
			}
			imgui.TreePop()
		}

	case reflect.Slice:
		imgui.Text(fmt.Sprintf("%s: [%d items]", name, val.Len()))

	case reflect.Map:
		imgui.Text(fmt.Sprintf("%s: map[%d items]", name, val.Len()))

	default:
		imgui.Text(fmt.Sprintf("%s: %v", name, val.Interface()))
	}
}
