package dataset

import (
	"encoding/json"
	"testing"

	"github.com/hashicorp/go-multierror"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testManifest() *Manifest {
	return NewManifest("dataset.person", "person.csv",
		Part{ColumnName: "id", PopulatesField: []string{"label.person.id"}, ReferenceKey: 1},
		Part{ColumnName: "name", PopulatesField: []string{"label.person.name"}},
	)
}

func TestManifest_SetUploadMode(t *testing.T) {
	m := testManifest()
	m.SetUploadMode(UploadIncremental)
	for _, p := range m.Parts {
		assert.Equal(t, UploadIncremental, p.Mode)
	}
	assert.NoError(t, m.Validate())
}

func TestManifest_Validate(t *testing.T) {
	m := &Manifest{Parts: []Part{{Mode: "SOMETIMES"}}}
	err := m.Validate()
	require.Error(t, err)

	var merr *multierror.Error
	require.ErrorAs(t, err, &merr)
	// dataSet, file, columnName, populates, mode
	assert.Len(t, merr.Errors, 5)
}

func TestManifest_RoundTrip(t *testing.T) {
	m := testManifest()
	m.SetUploadMode(UploadFull)

	data, err := json.Marshal(m)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"dataSetSLIManifest"`)
	assert.Contains(t, string(data), `"populates":["label.person.id"]`)

	var decoded Manifest
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, *m, decoded)
}

func TestTaskState(t *testing.T) {
	tests := []struct {
		body     string
		finished bool
		success  bool
	}{
		{`{"wTaskStatus": {"status": "RUNNING"}}`, false, false},
		{`{"wTaskStatus": {"status": "OK"}}`, true, true},
		{`{"wTaskStatus": {"status": "WARNING"}}`, true, true},
		{`{"wTaskStatus": {"status": "ERROR"}}`, true, false},
	}
	for _, tt := range tests {
		var s TaskState
		require.NoError(t, json.Unmarshal([]byte(tt.body), &s))
		assert.Equal(t, tt.finished, s.IsFinished(), tt.body)
		assert.Equal(t, tt.success, s.IsSuccess(), tt.body)
	}
}

func TestTaskState_Messages(t *testing.T) {
	var s TaskState
	require.NoError(t, json.Unmarshal([]byte(`{"wTaskStatus": {
		"status": "ERROR",
		"messages": [
			{"error": {"message": "Column %s is missing", "parameters": ["name"]}},
			{"error": {"message": "Load failed"}}
		]
	}}`), &s))

	require.Len(t, s.Messages, 2)
	assert.Equal(t, "Column name is missing; Load failed", s.Message())
}

func TestUploadsInfo(t *testing.T) {
	var info UploadsInfo
	require.NoError(t, json.Unmarshal([]byte(`{"dataSetsInfo": {"items": [
		{"dataSet": {
			"meta": {"identifier": "dataset.person", "title": "Person"},
			"uploadsURI": "/gdc/md/p1/data/uploads/1",
			"lastUpload": {"dataUpload": {"uri": "/gdc/md/p1/data/upload/7", "status": "OK", "progress": 1}}
		}},
		{"dataSet": {"meta": {"identifier": "dataset.city"}}}
	]}}`), &info))

	person := info.DataSetInfo("dataset.person")
	require.NotNil(t, person)
	assert.Equal(t, "Person", person.Meta.Title)
	require.NotNil(t, person.LastUpload)
	assert.Equal(t, "7", person.LastUpload.ID())
	assert.Equal(t, UploadOK, person.LastUpload.Status)

	assert.Nil(t, info.DataSetInfo("dataset.city").LastUpload)
	assert.Nil(t, info.DataSetInfo("dataset.unknown"))
}

func TestUploadStatistics(t *testing.T) {
	var stats UploadStatistics
	require.NoError(t, json.Unmarshal([]byte(`{"dataUploadsInfo": {
		"datasetCount": 2,
		"statusCount": {"OK": 4, "ERROR": 1}
	}}`), &stats))

	assert.Equal(t, 4, stats.Count(UploadOK))
	assert.Equal(t, 0, stats.Count(UploadRunning))
	assert.Equal(t, 5, stats.Total())
}
