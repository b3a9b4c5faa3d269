package models

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func strp(s string) *string { return &s }

func TestID_UnmarshalJSON(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want ID
	}{
		{"number", `42`, "42"},
		{"string", `"7b8e0c2a-4c1e-4f5e-9c52-2f1a3b4c5d6e"`, "7b8e0c2a-4c1e-4f5e-9c52-2f1a3b4c5d6e"},
		{"null", `null`, ""},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			var id ID
			require.NoError(t, json.Unmarshal([]byte(tc.in), &id))
			assert.Equal(t, tc.want, id)
		})
	}

	var id ID
	assert.Error(t, json.Unmarshal([]byte(`{}`), &id))
}

func TestID_MarshalJSON_NumericAsNumber(t *testing.T) {
	b, err := json.Marshal(struct {
		A ID `json:"a"`
		B ID `json:"b"`
		C ID `json:"c"`
		D ID `json:"d,omitempty"`
	}{A: "12", B: "local-1"})
	require.NoError(t, err)
	assert.JSONEq(t, `{"a":12,"b":"local-1","c":null}`, string(b))
}

func TestID_IsLocal(t *testing.T) {
	assert.False(t, ID("").IsLocal())
	assert.False(t, ID("123").IsLocal())
	assert.True(t, ID("9a1d2a9e-0000-4000-8000-000000000000").IsLocal())
}

func TestAward_DecodeServerPayload(t *testing.T) {
	raw := `{"id": 5, "issued_date": null, "badge_name": "Rocket", "issuer_org_name": "NASA",
		"tags": ["space"], "shares": [9], "entry": 31, "is_deleted": false,
		"evidence": [{"url": "http://e"}]}`

	var a Award
	require.NoError(t, json.Unmarshal([]byte(raw), &a))

	assert.Equal(t, ID("5"), a.ID)
	assert.True(t, a.IsPending())
	assert.Equal(t, ID("31"), a.Entry)
	assert.Equal(t, []ID{"9"}, a.Shares)
	assert.JSONEq(t, `[{"url":"http://e"}]`, string(a.Evidence))
}

func TestAward_CloneDoesNotAlias(t *testing.T) {
	a := Award{Tags: []string{"a"}, Shares: []ID{"1"}}
	c := a.Clone()
	c.Tags[0] = "b"
	c.Shares[0] = "2"

	assert.Equal(t, "a", a.Tags[0])
	assert.Equal(t, ID("1"), a.Shares[0])
}

func TestEntry_IsSyncedUsesLastSection(t *testing.T) {
	assert.False(t, Entry{}.IsSynced())
	assert.False(t, Entry{Sections: []Section{{ID: "1"}, {Title: "new"}}}.IsSynced())
	assert.True(t, Entry{Sections: []Section{{ID: "1"}, {ID: "2"}}}.IsSynced())
}

func TestEntry_ShellAndStaged(t *testing.T) {
	e := Entry{Sections: []Section{{
		Title: "s",
		Attachments: []Attachment{
			{ID: "3", File: "http://f"},
			{Label: "new.png", DataURI: "data:image/png;base64,AA=="},
		},
	}}}

	assert.True(t, e.HasStagedAttachments())

	shell := e.Shell()
	assert.Empty(t, shell.Sections[0].Attachments)
	assert.Len(t, e.Sections[0].Attachments, 2, "shell must not modify the original")
	assert.False(t, shell.HasStagedAttachments())
}

func TestEntry_CloneIsDeep(t *testing.T) {
	e := Entry{Sections: []Section{{Attachments: []Attachment{{Label: "x"}}}}}
	c := e.Clone()
	c.Sections[0].Attachments[0].Label = "y"
	c.Sections[0].Title = "changed"

	assert.Equal(t, "x", e.Sections[0].Attachments[0].Label)
	assert.Empty(t, e.Sections[0].Title)
}

func TestShareType(t *testing.T) {
	assert.True(t, ShareLinkedIn.Valid())
	assert.Equal(t, "HTML Embed", ShareEmbed.Name())
	assert.False(t, ShareType("type_myspace").Valid())
	assert.Len(t, ShareTypes, 7)
}

func TestUserProfile_PrimaryEmail(t *testing.T) {
	u := UserProfile{Emails: []UserEmail{{Email: "a@x"}, {Email: "b@x", IsPrimary: true}}}
	assert.Equal(t, "b@x", u.PrimaryEmail())
	assert.Empty(t, UserProfile{}.PrimaryEmail())
}

func TestFilter_MatchAward(t *testing.T) {
	shares := map[ID]Share{"1": {ID: "1"}, "2": {ID: "2", IsDeleted: true}}
	lookup := func(id ID) (Share, bool) { s, ok := shares[id]; return s, ok }

	live := Award{IssuedDate: strp("2020-05-01"), IssuerOrgName: "NASA", Tags: []string{"a", "b"}, Shares: []ID{"1"}}
	past := Award{IssuedDate: strp("2019-01-01"), IssuerOrgName: "ESA", Shares: []ID{"2"}}
	never := Award{IssuedDate: strp("2021-01-01"), IssuerOrgName: "NASA"}
	deleted := Award{IsDeleted: true}
	expired := Award{IssuedDate: strp("2018-01-01"), ExpirationDate: strp("2019-01-01")}

	tests := []struct {
		name string
		f    Filter
		a    Award
		want bool
	}{
		{"empty filter", Filter{}, live, true},
		{"deleted excluded", Filter{}, deleted, false},
		{"start date", Filter{StartDate: "2020-06-01"}, live, false},
		{"end date", Filter{EndDate: "2020-12-31"}, live, true},
		{"issuer", Filter{Issuers: []string{"ESA"}}, live, false},
		{"tags subset", Filter{Tags: []string{"a"}}, live, true},
		{"tags missing", Filter{Tags: []string{"c"}}, live, false},
		{"is shared", Filter{IsShared: true}, live, true},
		{"is shared not for deleted share", Filter{IsShared: true}, past, false},
		{"was shared", Filter{WasShared: true}, past, true},
		{"never shared", Filter{NeverShared: true}, never, true},
		{"never shared excludes shared", Filter{NeverShared: true}, live, false},
		{"expired", Filter{IsExpired: true}, expired, true},
		{"valid excludes expired", Filter{IsValid: true}, expired, false},
		{"revoked", Filter{IsRevoked: true}, live, false},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, tc.f.MatchAward(tc.a, lookup, "2024-01-01"))
		})
	}
}

func TestFilter_MatchEntry(t *testing.T) {
	lookup := func(ID) (Share, bool) { return Share{}, false }
	e := Entry{CreatedDT: "2021-03-04T10:00:00Z", Tags: []string{"x"}}

	assert.True(t, Filter{StartDate: "2021-03-04", EndDate: "2021-03-04"}.MatchEntry(e, lookup))
	assert.False(t, Filter{Tags: []string{"y"}}.MatchEntry(e, lookup))
	assert.False(t, Filter{}.MatchEntry(Entry{IsDeleted: true}, lookup))
}

func TestTagType(t *testing.T) {
	assert.True(t, TagTypeEntry.Valid())
	assert.False(t, TagType(2).Valid())
	assert.Equal(t, "award", TagTypeAward.String())
	assert.Equal(t, 2, TagTypeCount)
}
