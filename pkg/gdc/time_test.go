package gdc_test

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hashicorp-forge/gdc/pkg/gdc"
)

func TestTime_UnmarshalFormats(t *testing.T) {
	want := time.Date(2014, 4, 10, 13, 27, 6, 0, time.UTC)

	for _, in := range []string{
		`"2014-04-10T13:27:06.000Z"`,
		`"2014-04-10T13:27:06Z"`,
		`"2014-04-10 13:27:06"`,
		`"2014-04-10T15:27:06+02:00"`,
	} {
		var got gdc.Time
		require.NoError(t, json.Unmarshal([]byte(in), &got), in)
		assert.True(t, want.Equal(got.Time), "%s parsed as %s", in, got)
	}
}

func TestTime_NullAndEmpty(t *testing.T) {
	var got gdc.Time
	require.NoError(t, json.Unmarshal([]byte(`null`), &got))
	assert.True(t, got.IsZero())

	require.NoError(t, json.Unmarshal([]byte(`""`), &got))
	assert.True(t, got.IsZero())

	data, err := json.Marshal(gdc.Time{})
	require.NoError(t, err)
	assert.Equal(t, "null", string(data))
}

func TestTime_RoundTrip(t *testing.T) {
	in := gdc.NewTime(time.Date(2017, 1, 2, 3, 4, 5, 6000000, time.UTC))

	data, err := json.Marshal(in)
	require.NoError(t, err)
	assert.Equal(t, `"2017-01-02T03:04:05.006Z"`, string(data))

	var out gdc.Time
	require.NoError(t, json.Unmarshal(data, &out))
	assert.Equal(t, *in, out)
}

func TestTime_Invalid(t *testing.T) {
	var got gdc.Time
	assert.Error(t, json.Unmarshal([]byte(`"not a date"`), &got))
	assert.Error(t, json.Unmarshal([]byte(`42`), &got))
}
