// Package catalogs loads the item, surface and building definitions a world
// is built from. Every entry is decoded on its own: schema violations, entries
// that do not decode and inconsistent entries are collected as Problems and
// only the offending entry is skipped. Unreadable files and files that are not
// JSON at all fail a load.
package catalogs

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"beltworks.dev/internal/sim/item"
	"beltworks.dev/internal/sim/power"
)

type Catalogs struct {
	Items     ItemCatalog
	Surfaces  SurfaceCatalog
	Buildings BuildingCatalog

	Problems []Problem
}

// Problem is a recoverable defect found while loading.
type Problem struct {
	File  string `json:"file"`
	Entry string `json:"entry,omitempty"`
	Msg   string `json:"msg"`
}

func (p Problem) String() string {
	if p.Entry == "" {
		return p.File + ": " + p.Msg
	}
	return p.File + ": " + p.Entry + ": " + p.Msg
}

type ItemCatalog struct {
	Registry      *item.Registry
	Defs          map[string]ItemDef
	PaletteDigest string
	DefsDigest    string
}

type ItemDef struct {
	ID   string `json:"id"`
	Kind string `json:"kind,omitempty"` // "RAW","INTERMEDIATE","PRODUCT"
}

type SurfaceCatalog struct {
	Palette []string
	Defs    map[string]SurfaceDef
	Digest  string
}

type SurfaceDef struct {
	ID    string `json:"id"`
	Color string `json:"color,omitempty"`
}

type BuildingCatalog struct {
	Belts     map[string]BeltDef
	Recyclers map[string]RecyclerDef
	Miners    map[string]MinerDef
	Digest    string
}

type BeltDef struct {
	Name      string `json:"name"`
	ItemCount int    `json:"item_count"`
}

type ItemCount struct {
	Item  string `json:"item"`
	Count int    `json:"count"`
}

type ElectricInputDef struct {
	ID      uint32 `json:"id"`
	Voltage uint32 `json:"voltage"`
	Request uint32 `json:"request"`
}

type ElectricOutputDef struct {
	ID         uint32 `json:"id"`
	Voltage    uint32 `json:"voltage"`
	Throughput uint32 `json:"throughput"`
}

// ElectricPortDef is the positional port form: the port id is its index in
// the list and Energy is the request of an input or the throughput of an
// output.
type ElectricPortDef struct {
	Mode    string `json:"mode"`
	Voltage uint32 `json:"voltage"`
	Energy  uint32 `json:"energy"`
}

type RecyclerDef struct {
	Name            string              `json:"name"`
	Period          int                 `json:"period"`
	Inputs          []ItemCount         `json:"inputs"`
	Outputs         []ItemCount         `json:"outputs"`
	ElectricInputs  []ElectricInputDef  `json:"electric_inputs"`
	ElectricOutputs []ElectricOutputDef `json:"electric_outputs"`
	ElectricPorts   []ElectricPortDef   `json:"electric_ports,omitempty"`
}

type MinerDef struct {
	Name     string                 `json:"name"`
	Surfaces map[string]RecyclerDef `json:"surfaces"`
}

type buildingsFile struct {
	TransportBelts []json.RawMessage `json:"transport_belts"`
	Recyclers      []json.RawMessage `json:"recyclers"`
	Miners         []json.RawMessage `json:"miners"`
}

type minerFile struct {
	Name     string                     `json:"name"`
	Surfaces map[string]json.RawMessage `json:"surfaces"`
}

const (
	itemsFile     = "items.json"
	surfacesFile  = "surfaces.json"
	buildingsName = "buildings.json"
)

func Load(configDir string) (*Catalogs, error) {
	read := func(name string) ([]byte, error) {
		raw, err := os.ReadFile(filepath.Join(configDir, name))
		if err != nil {
			return nil, fmt.Errorf("catalogs: %w", err)
		}
		return raw, nil
	}
	items, err := read(itemsFile)
	if err != nil {
		return nil, err
	}
	surfaces, err := read(surfacesFile)
	if err != nil {
		return nil, err
	}
	buildings, err := read(buildingsName)
	if err != nil {
		return nil, err
	}
	return Parse(items, surfaces, buildings)
}

// Parse builds catalogs from raw file contents.
func Parse(items, surfaces, buildings []byte) (*Catalogs, error) {
	var c Catalogs
	if err := c.parseItems(items); err != nil {
		return nil, err
	}
	if err := c.parseSurfaces(surfaces); err != nil {
		return nil, err
	}
	if err := c.parseBuildings(buildings); err != nil {
		return nil, err
	}
	return &c, nil
}

func sha256Hex(b []byte) string {
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:])
}

func (c *Catalogs) problem(file, entry, format string, args ...any) {
	c.Problems = append(c.Problems, Problem{File: file, Entry: entry, Msg: fmt.Sprintf(format, args...)})
}

func (c *Catalogs) parseItems(raw []byte) error {
	out := &c.Items
	out.DefsDigest = sha256Hex(raw)
	if err := c.validate(itemsFile, raw); err != nil {
		return err
	}

	entries := c.entries(itemsFile, "", raw)
	out.Defs = map[string]ItemDef{}
	ids := make([]string, 0, len(entries))
	for i, e := range entries {
		var d ItemDef
		if !c.decode(itemsFile, fmt.Sprintf("#%d", i), e, &d) {
			continue
		}
		if d.ID == "" {
			c.problem(itemsFile, fmt.Sprintf("#%d", i), "empty id")
			continue
		}
		if _, dup := out.Defs[d.ID]; dup {
			c.problem(itemsFile, d.ID, "duplicate id")
			continue
		}
		out.Defs[d.ID] = d
		ids = append(ids, d.ID)
	}
	out.Registry = item.NewRegistry(ids)
	palJSON, _ := json.Marshal(out.Registry.Palette())
	out.PaletteDigest = sha256Hex(palJSON)
	return nil
}

func (c *Catalogs) parseSurfaces(raw []byte) error {
	out := &c.Surfaces
	out.Digest = sha256Hex(raw)
	if err := c.validate(surfacesFile, raw); err != nil {
		return err
	}

	entries := c.entries(surfacesFile, "", raw)
	out.Defs = map[string]SurfaceDef{}
	for i, e := range entries {
		var d SurfaceDef
		if !c.decode(surfacesFile, fmt.Sprintf("#%d", i), e, &d) {
			continue
		}
		if d.ID == "" {
			c.problem(surfacesFile, fmt.Sprintf("#%d", i), "empty id")
			continue
		}
		if _, dup := out.Defs[d.ID]; dup {
			c.problem(surfacesFile, d.ID, "duplicate id")
			continue
		}
		out.Defs[d.ID] = d
		out.Palette = append(out.Palette, d.ID)
	}
	sort.Strings(out.Palette)
	return nil
}

func (c *Catalogs) parseBuildings(raw []byte) error {
	out := &c.Buildings
	out.Digest = sha256Hex(raw)
	if err := c.validate(buildingsName, raw); err != nil {
		return err
	}

	var f buildingsFile
	if err := json.Unmarshal(raw, &f); err != nil {
		c.problem(buildingsName, "", "not a buildings object, file ignored: %v", err)
		f = buildingsFile{}
	}
	out.Belts = map[string]BeltDef{}
	out.Recyclers = map[string]RecyclerDef{}
	out.Miners = map[string]MinerDef{}

	taken := map[string]bool{}
	claim := func(kind, name string) bool {
		if name == "" {
			c.problem(buildingsName, kind, "empty name")
			return false
		}
		if taken[name] {
			c.problem(buildingsName, name, "name already used, %s entry skipped", kind)
			return false
		}
		taken[name] = true
		return true
	}

	for i, e := range f.TransportBelts {
		var b BeltDef
		if !c.decode(buildingsName, entryName("transport_belts", i, e), e, &b) {
			continue
		}
		if !claim("transport_belts", b.Name) {
			continue
		}
		if b.ItemCount < 0 {
			c.problem(buildingsName, b.Name, "negative item_count, using 0")
			b.ItemCount = 0
		}
		out.Belts[b.Name] = b
	}
	for i, e := range f.Recyclers {
		var r RecyclerDef
		if !c.decode(buildingsName, entryName("recyclers", i, e), e, &r) {
			continue
		}
		if !claim("recyclers", r.Name) {
			continue
		}
		r = c.normalizePorts(r.Name, r)
		c.checkRecycler(r.Name, r)
		out.Recyclers[r.Name] = r
	}
	for i, e := range f.Miners {
		var mf minerFile
		if !c.decode(buildingsName, entryName("miners", i, e), e, &mf) {
			continue
		}
		if !claim("miners", mf.Name) {
			continue
		}
		m := MinerDef{Name: mf.Name, Surfaces: make(map[string]RecyclerDef, len(mf.Surfaces))}
		for surface, re := range mf.Surfaces {
			entry := mf.Name + "/" + surface
			var r RecyclerDef
			if !c.decode(buildingsName, entry, re, &r) {
				continue
			}
			if _, ok := c.Surfaces.Defs[surface]; !ok {
				c.problem(buildingsName, mf.Name, "unknown surface %q", surface)
			}
			r = c.normalizePorts(entry, r)
			c.checkRecycler(entry, r)
			m.Surfaces[surface] = r
		}
		out.Miners[m.Name] = m
	}
	return nil
}

// entries splits a top-level array into raw entries. A file of the wrong
// shape is reported and read as empty.
func (c *Catalogs) entries(file, entry string, raw []byte) []json.RawMessage {
	var list []json.RawMessage
	if err := json.Unmarshal(raw, &list); err != nil {
		c.problem(file, entry, "not a list, ignored: %v", err)
		return nil
	}
	return list
}

func (c *Catalogs) decode(file, entry string, raw json.RawMessage, v any) bool {
	if err := json.Unmarshal(raw, v); err != nil {
		c.problem(file, entry, "entry skipped: %v", err)
		return false
	}
	return true
}

// entryName prefers the entry's own name and falls back to its position.
func entryName(section string, i int, raw json.RawMessage) string {
	var named struct {
		Name string `json:"name"`
	}
	if json.Unmarshal(raw, &named) == nil && named.Name != "" {
		return named.Name
	}
	return fmt.Sprintf("%s#%d", section, i)
}

// normalizePorts folds the positional electric_ports list into the explicit
// input and output lists. A port with an unknown mode is dropped but still
// takes up its id.
func (c *Catalogs) normalizePorts(entry string, r RecyclerDef) RecyclerDef {
	for i, p := range r.ElectricPorts {
		mode, err := power.ParseMode(p.Mode)
		if err != nil {
			c.problem(buildingsName, entry, "electric_ports[%d]: %v", i, err)
			continue
		}
		id := uint32(i)
		switch mode {
		case power.ModeIn:
			r.ElectricInputs = append(r.ElectricInputs, ElectricInputDef{ID: id, Voltage: p.Voltage, Request: p.Energy})
		case power.ModeOut:
			r.ElectricOutputs = append(r.ElectricOutputs, ElectricOutputDef{ID: id, Voltage: p.Voltage, Throughput: p.Energy})
		}
	}
	r.ElectricPorts = nil
	return r
}

// checkRecycler only reports; the building factory decides what to do with a
// recycler that names unknown items.
func (c *Catalogs) checkRecycler(entry string, r RecyclerDef) {
	for _, list := range [][]ItemCount{r.Inputs, r.Outputs} {
		for _, ic := range list {
			if _, ok := c.Items.Defs[ic.Item]; !ok {
				c.problem(buildingsName, entry, "unknown item %q", ic.Item)
			}
		}
	}
	ports := map[uint32]bool{}
	for _, in := range r.ElectricInputs {
		if ports[in.ID] {
			c.problem(buildingsName, entry, "duplicate port id %d", in.ID)
		}
		ports[in.ID] = true
	}
	for _, o := range r.ElectricOutputs {
		if ports[o.ID] {
			c.problem(buildingsName, entry, "duplicate port id %d", o.ID)
		}
		ports[o.ID] = true
	}
}

// Names lists every building name in sorted order.
func (b BuildingCatalog) Names() []string {
	names := make([]string, 0, len(b.Belts)+len(b.Recyclers)+len(b.Miners))
	for n := range b.Belts {
		names = append(names, n)
	}
	for n := range b.Recyclers {
		names = append(names, n)
	}
	for n := range b.Miners {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Digest combines the per-file digests into one value.
func (c *Catalogs) Digest() string {
	return sha256Hex([]byte(c.Items.PaletteDigest + c.Items.DefsDigest + c.Surfaces.Digest + c.Buildings.Digest))
}
