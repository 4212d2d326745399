package debugui

import (
	"fmt"
	"sort"
	"strings"

	"github.com/AllenDang/cimgui-go/imgui"
	"github.com/plus3/quiver/ecs"
)

type entityRow struct {
	Entity         ecs.EntityRef
	ArchetypeIndex uint32
	SlotIndex      uint32
	ComponentTypes []string
}

// EntityBrowser lists live entities across every host, with filtering and
// paging. Selecting a row feeds the component inspector.
type EntityBrowser struct {
	rows          []entityRow
	lastHostCount int
	lastCount     int
	sortColumn    int
	sortAscending bool

	selected           ecs.EntityRef
	filterText         string
	maxEntitiesPerPage int
	currentPage        int
}

func NewEntityBrowser(maxEntitiesPerPage int) EntityBrowser {
	return EntityBrowser{
		sortAscending:      true,
		maxEntitiesPerPage: maxEntitiesPerPage,
	}
}

// Selected returns the currently highlighted entity, zero when none.
func (eb *EntityBrowser) Selected() ecs.EntityRef {
	return eb.selected
}

func (eb *EntityBrowser) Render(world *ecs.World) {
	if !imgui.BeginV("Entity Browser", nil, imgui.WindowFlagsNone) {
		imgui.End()
		return
	}

	eb.rebuildIfNeeded(world)

	imgui.InputTextWithHint("##search", "Search...", &eb.filterText, imgui.InputTextFlagsNone, nil)
	imgui.SameLine()
	if imgui.Button("Clear Filter") {
		eb.filterText = ""
	}

	const tableFlags = imgui.TableFlagsBorders | imgui.TableFlagsRowBg | imgui.TableFlagsSortable | imgui.TableFlagsScrollY
	if imgui.BeginTableV("EntityTable", 3, tableFlags, imgui.NewVec2(0, 0), 0) {
		imgui.TableSetupColumn("Slot")
		imgui.TableSetupColumn("Archetype")
		imgui.TableSetupColumn("Components")
		imgui.TableHeadersRow()

		sortSpecs := imgui.TableGetSortSpecs()
		if sortSpecs.SpecsDirty() && sortSpecs.SpecsCount() > 0 {
			spec := sortSpecs.Specs()
			eb.sortColumn = int(spec.ColumnIndex())
			eb.sortAscending = spec.SortDirection() == imgui.SortDirectionAscending
			eb.sortRows()
			sortSpecs.SetSpecsDirty(false)
		}

		filtered := eb.filteredRows()

		startIdx := eb.currentPage * eb.maxEntitiesPerPage
		endIdx := startIdx + eb.maxEntitiesPerPage
		if startIdx > len(filtered) {
			startIdx = 0
			eb.currentPage = 0
		}
		if endIdx > len(filtered) {
			endIdx = len(filtered)
		}

		for i := startIdx; i < endIdx; i++ {
			row := filtered[i]
			imgui.TableNextRow()

			imgui.TableNextColumn()
			isSelected := eb.selected == row.Entity
			label := fmt.Sprintf("%d##%d-%d", row.SlotIndex, row.ArchetypeIndex, row.SlotIndex)
			if imgui.SelectableBoolV(label, isSelected, imgui.SelectableFlagsSpanAllColumns, imgui.NewVec2(0, 0)) {
				eb.selected = row.Entity
			}

			imgui.TableNextColumn()
			imgui.Text(fmt.Sprintf("0x%X", row.ArchetypeIndex))

			imgui.TableNextColumn()
			imgui.Text(strings.Join(row.ComponentTypes, ", "))
		}

		imgui.EndTable()
	}

	filtered := eb.filteredRows()
	if len(filtered) > eb.maxEntitiesPerPage {
		totalPages := (len(filtered) + eb.maxEntitiesPerPage - 1) / eb.maxEntitiesPerPage
		imgui.Text(fmt.Sprintf("Page %d / %d (%d entities)", eb.currentPage+1, totalPages, len(filtered)))
		imgui.SameLine()
		if imgui.Button("Prev") && eb.currentPage > 0 {
			eb.currentPage--
		}
		imgui.SameLine()
		if imgui.Button("Next") && eb.currentPage < totalPages-1 {
			eb.currentPage++
		}
	} else {
		imgui.Text(fmt.Sprintf("Total: %d entities", len(filtered)))
	}

	imgui.End()
}

func (eb *EntityBrowser) rebuildIfNeeded(world *ecs.World) {
	hostCount := 0
	for range world.Hosts() {
		hostCount++
	}
	if eb.lastHostCount != hostCount || eb.lastCount != world.Count() {
		eb.rows = nil
		eb.lastHostCount = hostCount
		eb.lastCount = world.Count()
	}
	if eb.rows == nil {
		eb.rebuild(world)
	}
}

func (eb *EntityBrowser) rebuild(world *ecs.World) {
	eb.rows = make([]entityRow, 0, world.Count())

	for host := range world.Hosts() {
		desc := host.Descriptor()
		componentTypes := make([]string, 0, len(desc.Fields()))
		for _, field := range desc.Fields() {
			componentTypes = append(componentTypes, field.Type.String())
		}

		for slot := range host.Slots() {
			eb.rows = append(eb.rows, entityRow{
				Entity:         ecs.RefOf(host, slot),
				ArchetypeIndex: host.ArchetypeIndex(),
				SlotIndex:      slot.Index(),
				ComponentTypes: componentTypes,
			})
		}
	}

	eb.sortRows()
}

func (eb *EntityBrowser) sortRows() {
	sort.Slice(eb.rows, func(i, j int) bool {
		a, b := eb.rows[i], eb.rows[j]
		var less bool

		switch eb.sortColumn {
		case 1:
			less = a.ArchetypeIndex < b.ArchetypeIndex
		case 2:
			less = strings.Join(a.ComponentTypes, ",") < strings.Join(b.ComponentTypes, ",")
		default:
			if a.ArchetypeIndex == b.ArchetypeIndex {
				less = a.SlotIndex < b.SlotIndex
			} else {
				less = a.ArchetypeIndex < b.ArchetypeIndex
			}
		}

		if !eb.sortAscending {
			return !less
		}
		return less
	})
}

func (eb *EntityBrowser) filteredRows() []entityRow {
	if eb.filterText == "" {
		return eb.rows
	}

	filtered := make([]entityRow, 0, len(eb.rows))
	filterLower := strings.ToLower(eb.filterText)

	for _, row := range eb.rows {
		slotStr := fmt.Sprintf("%d", row.SlotIndex)
		archStr := fmt.Sprintf("0x%x", row.ArchetypeIndex)
		componentsStr := strings.ToLower(strings.Join(row.ComponentTypes, " "))

		if !strings.Contains(slotStr, filterLower) &&
			!strings.Contains(archStr, filterLower) &&
			!strings.Contains(componentsStr, filterLower) {
			continue
		}

		filtered = append(filtered, row)
	}

	return filtered
}
