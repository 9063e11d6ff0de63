package warehouse

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hashicorp-forge/gdc/pkg/gdc"
)

func TestWarehouse_RoundTrip(t *testing.T) {
	created := gdc.NewTime(time.Date(2024, 3, 1, 10, 30, 0, 0, time.UTC))
	w := Warehouse{
		Title:              "Sales",
		Description:        "sales data",
		AuthorizationToken: "token",
		ConnectionURL:      "jdbc:gdc:datawarehouse://secure.gooddata.com/gdc/datawarehouse/instances/w1",
		Status:             "ENABLED",
		Environment:        Testing,
		Created:            created,
		Updated:            created,
		CreatedBy:          "/gdc/account/profile/u1",
		UpdatedBy:          "/gdc/account/profile/u1",
		Links: map[string]string{
			LinkSelf:  "/gdc/datawarehouse/instances/w1",
			LinkUsers: "/gdc/datawarehouse/instances/w1/users",
		},
	}

	data, err := json.Marshal(w)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"instance"`)
	assert.Contains(t, string(data), `"connectionUrl"`)

	var decoded Warehouse
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, w, decoded)

	assert.Equal(t, "w1", decoded.ID())
	assert.Equal(t, w.ConnectionURL, decoded.JDBCConnectionString())
	assert.Equal(t, "/gdc/datawarehouse/instances/w1/users", decoded.UsersURI())
	assert.Equal(t, "/gdc/datawarehouse/instances/w1/schemas", decoded.SchemasURI())
}

func TestWarehouse_MissingRoot(t *testing.T) {
	var w Warehouse
	assert.Error(t, json.Unmarshal([]byte(`{"title": "x"}`), &w))
}

func TestNewWarehouse(t *testing.T) {
	_, err := NewWarehouse("", "token")
	assert.Error(t, err)

	_, err = NewWarehouse("title", "")
	assert.Error(t, err)

	w, err := NewWarehouse("title", "token")
	require.NoError(t, err)
	assert.Equal(t, "", w.ID())

	w.Environment = "STAGING"
	assert.Error(t, w.Validate())
}

func TestUser_Validate(t *testing.T) {
	tests := map[string]struct {
		user    User
		wantErr bool
	}{
		"profile":      {User{Role: RoleAdmin, Profile: "/gdc/account/profile/u1"}, false},
		"login":        {User{Role: RoleDataUser, Login: "user@example.com"}, false},
		"missing role": {User{Profile: "/gdc/account/profile/u1"}, true},
		"unknown role": {User{Role: "owner", Login: "user@example.com"}, true},
		"neither":      {User{Role: RoleAdmin}, true},
		"both":         {User{Role: RoleAdmin, Profile: "/gdc/account/profile/u1", Login: "user@example.com"}, true},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			err := tc.user.Validate()
			if tc.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestUser_RoundTrip(t *testing.T) {
	u, err := NewUserWithLogin(RoleDataAdmin, "user@example.com")
	require.NoError(t, err)
	u.Links = map[string]string{LinkSelf: "/gdc/datawarehouse/instances/w1/users/u9"}

	data, err := json.Marshal(u)
	require.NoError(t, err)

	var decoded User
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, *u, decoded)
	assert.Equal(t, "u9", decoded.ID())
}

func TestSchema_RoundTrip(t *testing.T) {
	s := Schema{Name: DefaultSchemaName, Description: "default schema", Links: map[string]string{LinkSelf: "/gdc/datawarehouse/instances/w1/schemas/default"}}

	data, err := json.Marshal(s)
	require.NoError(t, err)

	var decoded Schema
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, s, decoded)
}
