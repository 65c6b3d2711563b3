package catalogs

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadShippedConfigs(t *testing.T) {
	c, err := Load(filepath.Join("..", "..", "..", "configs"))
	require.NoError(t, err)
	assert.Empty(t, c.Problems)

	assert.Equal(t, 4, c.Items.Registry.Len())
	id, ok := c.Items.Registry.Lookup("gear")
	require.True(t, ok)
	assert.Equal(t, "gear", c.Items.Registry.Name(id))

	assert.Equal(t, 4, c.Buildings.Belts["transport_belt"].ItemCount)
	assert.Equal(t, 3, c.Buildings.Recyclers["gear_press"].Period)
	assert.Contains(t, c.Buildings.Miners["drill"].Surfaces, "iron_deposit")
	assert.Contains(t, c.Surfaces.Palette, "grass")
	assert.NotEmpty(t, c.Digest())
}

func TestParseRecordsProblemsAndSkips(t *testing.T) {
	items := []byte(`[{"id":"iron"},{"id":""},{"id":"iron"},{"id":"gear","kind":"WEIRD"}]`)
	surfaces := []byte(`[{"id":"grass"}]`)
	buildings := []byte(`{
	  "transport_belts":[{"name":"belt","item_count":3},{"name":"belt","item_count":9}],
	  "recyclers":[{"name":"press","inputs":[{"item":"unobtainium","count":1}]}],
	  "miners":[{"name":"drill","surfaces":{"lava":{"period":2}}}]
	}`)

	c, err := Parse(items, surfaces, buildings)
	require.NoError(t, err)

	assert.Equal(t, 2, c.Items.Registry.Len())
	assert.Equal(t, 3, c.Buildings.Belts["belt"].ItemCount)
	assert.Contains(t, c.Buildings.Recyclers, "press")
	assert.Contains(t, c.Buildings.Miners, "drill")

	msgs := make([]string, 0, len(c.Problems))
	for _, p := range c.Problems {
		msgs = append(msgs, p.String())
	}
	assert.Contains(t, msgs, "items.json: #1: empty id")
	assert.Contains(t, msgs, "items.json: iron: duplicate id")
	assert.Contains(t, msgs, `buildings.json: press: unknown item "unobtainium"`)
	assert.Contains(t, msgs, `buildings.json: drill: unknown surface "lava"`)
	assert.Contains(t, msgs, "buildings.json: belt: name already used, transport_belts entry skipped")

	// The kind enum and the empty id are schema violations too.
	schemaHits := 0
	for _, p := range c.Problems {
		if p.File == "items.json" && (p.Entry == "/1/id" || p.Entry == "/3/kind") {
			schemaHits++
		}
	}
	assert.Equal(t, 2, schemaHits)
}

func TestParseToleratesMissingFields(t *testing.T) {
	c, err := Parse([]byte(`[]`), []byte(`[]`), []byte(`{}`))
	require.NoError(t, err)
	assert.Empty(t, c.Problems)
	assert.Equal(t, 0, c.Items.Registry.Len())
	assert.Empty(t, c.Buildings.Names())
}

func TestParseRejectsMalformedJSON(t *testing.T) {
	_, err := Parse([]byte(`[{"id":`), []byte(`[]`), []byte(`{}`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "items.json")
}

func TestDigestsAreStable(t *testing.T) {
	a, err := Parse([]byte(`[{"id":"a"},{"id":"b"}]`), []byte(`[]`), []byte(`{}`))
	require.NoError(t, err)
	b, err := Parse([]byte(`[{"id":"a"},{"id":"b"}]`), []byte(`[]`), []byte(`{}`))
	require.NoError(t, err)
	assert.Equal(t, a.Digest(), b.Digest())

	// Same palette, different file bytes.
	c, err := Parse([]byte(`[{"id":"b"},{"id":"a"}]`), []byte(`[]`), []byte(`{}`))
	require.NoError(t, err)
	assert.Equal(t, a.Items.PaletteDigest, c.Items.PaletteDigest)
	assert.NotEqual(t, a.Items.DefsDigest, c.Items.DefsDigest)
}

func problemsFor(c *Catalogs, entry string) []Problem {
	var out []Problem
	for _, p := range c.Problems {
		if p.Entry == entry {
			out = append(out, p)
		}
	}
	return out
}

func TestParseSkipsOnlyUndecodableEntries(t *testing.T) {
	items := []byte(`[{"id":"iron"},{"id":7},{"id":"gear"}]`)
	buildings := []byte(`{
	  "transport_belts":[{"name":"slow","item_count":"4"},{"name":"belt","item_count":2}],
	  "recyclers":[
	    {"name":"bad","electric_inputs":[{"id":0,"voltage":220,"request":-5}]},
	    {"name":"ok","period":2,"inputs":[{"item":"iron","count":1}],"outputs":[{"item":"gear","count":1}]}
	  ],
	  "miners":[{"name":"drill","surfaces":{"grass":{"period":"x"},"sand":{"period":3}}}]
	}`)

	c, err := Parse(items, []byte(`[{"id":"grass"},{"id":"sand"}]`), buildings)
	require.NoError(t, err)

	assert.Equal(t, 2, c.Items.Registry.Len())
	assert.NotContains(t, c.Buildings.Belts, "slow")
	assert.Equal(t, 2, c.Buildings.Belts["belt"].ItemCount)
	assert.NotContains(t, c.Buildings.Recyclers, "bad")
	assert.Equal(t, 2, c.Buildings.Recyclers["ok"].Period)
	require.Contains(t, c.Buildings.Miners, "drill")
	assert.NotContains(t, c.Buildings.Miners["drill"].Surfaces, "grass")
	assert.Equal(t, 3, c.Buildings.Miners["drill"].Surfaces["sand"].Period)

	assert.NotEmpty(t, problemsFor(c, "#1"))
	assert.NotEmpty(t, problemsFor(c, "slow"))
	assert.NotEmpty(t, problemsFor(c, "bad"))
	assert.NotEmpty(t, problemsFor(c, "drill/grass"))
	assert.Empty(t, problemsFor(c, "ok"))
}

func TestParseWrongShapeIsAProblem(t *testing.T) {
	c, err := Parse([]byte(`{"id":"iron"}`), []byte(`[]`), []byte(`[]`))
	require.NoError(t, err)
	assert.Equal(t, 0, c.Items.Registry.Len())
	assert.Empty(t, c.Buildings.Names())

	files := map[string]bool{}
	for _, p := range c.Problems {
		files[p.File] = true
	}
	assert.True(t, files[itemsFile])
	assert.True(t, files[buildingsName])
}

func TestElectricPortsTakeIDsByPosition(t *testing.T) {
	buildings := []byte(`{"recyclers":[{"name":"gen","electric_ports":[
	  {"mode":"out","voltage":220,"energy":10},
	  {"mode":"sideways","voltage":220,"energy":1},
	  {"mode":"IN","voltage":110,"energy":3}
	]}]}`)
	c, err := Parse([]byte(`[]`), []byte(`[]`), buildings)
	require.NoError(t, err)

	r := c.Buildings.Recyclers["gen"]
	assert.Equal(t, []ElectricOutputDef{{ID: 0, Voltage: 220, Throughput: 10}}, r.ElectricOutputs)
	assert.Equal(t, []ElectricInputDef{{ID: 2, Voltage: 110, Request: 3}}, r.ElectricInputs)
	assert.Empty(t, r.ElectricPorts)

	probs := problemsFor(c, "gen")
	require.Len(t, probs, 1)
	assert.Contains(t, probs[0].Msg, "electric_ports[1]")
	assert.Contains(t, probs[0].Msg, `unknown port mode "sideways"`)
}

func TestShippedGeneratorUsesPortList(t *testing.T) {
	c, err := Load(filepath.Join("..", "..", "..", "configs"))
	require.NoError(t, err)
	gen := c.Buildings.Recyclers["coal_generator"]
	assert.Equal(t, []ElectricOutputDef{{ID: 0, Voltage: 220, Throughput: 10}}, gen.ElectricOutputs)
	smelter := c.Buildings.Recyclers["smelter"]
	assert.Equal(t, []ElectricInputDef{{ID: 0, Voltage: 220, Request: 5}}, smelter.ElectricInputs)
}
