package apkres

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testAppNameID = 0x7f010000

func TestParseResourceTableBytes(t *testing.T) {
	rt, err := ParseResourceTableBytes(buildResourceTable())
	require.NoError(t, err)

	assert.Equal(t, "@string/app_name", rt.KeyFor(testAppNameID, true))
	assert.Equal(t, "R.string.app_name", rt.KeyFor(testAppNameID, false))
}

func TestResourceTableDefaultValue(t *testing.T) {
	rt, err := ParseResourceTableBytes(buildResourceTable())
	require.NoError(t, err)

	e := rt.DefaultValue(testAppNameID)
	require.NotNil(t, e)
	assert.Equal(t, "app_name", e.Key)
	assert.Equal(t, "MyApp", e.Value(rt.Decoder()))
}

func TestResourceTableDefaultValueMatchesAllValues(t *testing.T) {
	rt, err := ParseResourceTableBytes(buildResourceTable())
	require.NoError(t, err)

	def := rt.DefaultValue(testAppNameID)
	all := rt.AllValues(testAppNameID)
	require.NotNil(t, def)
	require.NotNil(t, all)
	assert.Equal(t, *def, all[DefaultConfig])
}

func TestResourceTableUnknownID(t *testing.T) {
	rt, err := ParseResourceTableBytes(buildResourceTable())
	require.NoError(t, err)

	assert.Equal(t, "", rt.KeyFor(0x01010000, true)) // unknown package
	assert.Nil(t, rt.DefaultValue(0x7f020000))        // unknown type
	assert.Nil(t, rt.AllValues(0x7f020000))
}

func TestResourceTableAllKeysStringsTypes(t *testing.T) {
	rt, err := ParseResourceTableBytes(buildResourceTable())
	require.NoError(t, err)

	assert.Equal(t, []string{"@string/app_name"}, rt.AllKeys()[0x7f])
	assert.Equal(t, []string{"MyApp"}, rt.AllStrings())
	assert.Equal(t, []string{"string"}, rt.AllTypes()[0x7f])
}
