package console

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestPaginateFollowsCursor(t *testing.T) {
	// Three pages of two items each; the last page has no cursor.
	doer := &stubDoer{responses: []Response{
		{StatusCode: 200, Body: []byte(`{"AccountList":[{"Name":"a"},{"Name":"b"}],"NextToken":"t1"}`)},
		{StatusCode: 200, Body: []byte(`{"AccountList":[{"Name":"c"},{"Name":"d"}],"NextToken":"t2"}`)},
		{StatusCode: 200, Body: []byte(`{"AccountList":[{"Name":"e"},{"Name":"f"}]}`)},
	}}
	client := New(doer, "eu-west-1")

	type item struct {
		Name string `json:"Name"`
	}
	pages := Paginate[item](client, PageSpec{
		Target:   "listManagedAccounts",
		Content:  map[string]any{"MaxResults": 2},
		ItemsKey: "AccountList",
	})

	var names []string
	ctx := context.Background()
	for pages.Next(ctx) {
		names = append(names, pages.Current().Name)
	}
	require.NoError(t, pages.Err())
	require.Equal(t, []string{"a", "b", "c", "d", "e", "f"}, names)
	require.Equal(t, 3, doer.calls)

	// The cursor is merged into a copy of the original content.
	var second map[string]any
	require.NoError(t, json.Unmarshal([]byte(doer.payloads[1].ContentString), &second))
	require.Equal(t, "t1", second["NextToken"])
	require.Equal(t, float64(2), second["MaxResults"])

	var first map[string]any
	require.NoError(t, json.Unmarshal([]byte(doer.payloads[0].ContentString), &first))
	require.NotContains(t, first, "NextToken")
}

func TestPaginateLazy(t *testing.T) {
	doer := &stubDoer{responses: []Response{
		{StatusCode: 200, Body: []byte(`{"AccountList":[]}`)},
	}}
	client := New(doer, "eu-west-1")

	pages := Paginate[map[string]any](client, PageSpec{
		Target:   "listManagedAccounts",
		ItemsKey: "AccountList",
	})
	require.Zero(t, doer.calls, "no call before the first Next")

	require.False(t, pages.Next(context.Background()))
	require.NoError(t, pages.Err())
	require.Equal(t, 1, doer.calls)
}

func TestPaginateWholeBodyWhenCollectionAbsent(t *testing.T) {
	doer := &stubDoer{responses: []Response{
		{StatusCode: 200, Body: []byte(`{"UserLandingZoneVersion":"3.1"}`)},
	}}
	client := New(doer, "eu-west-1")

	type updates struct {
		UserLandingZoneVersion string `json:"UserLandingZoneVersion"`
	}
	pages := Paginate[updates](client, PageSpec{
		Target:   "getAvailableUpdates",
		ItemsKey: "UpdateList",
	})

	ctx := context.Background()
	require.True(t, pages.Next(ctx))
	require.Equal(t, "3.1", pages.Current().UserLandingZoneVersion)
	require.False(t, pages.Next(ctx))
	require.NoError(t, pages.Err())
	require.Equal(t, 1, doer.calls)
}

func TestPaginatePageFailure(t *testing.T) {
	doer := &stubDoer{responses: []Response{
		{StatusCode: 200, Body: []byte(`{"AccountList":[{"Name":"a"}],"NextToken":"t1"}`)},
		{StatusCode: 500, Body: []byte(`{"message":"boom"}`)},
	}}
	client := New(doer, "eu-west-1")

	pages := Paginate[map[string]any](client, PageSpec{
		Target:   "listManagedAccounts",
		ItemsKey: "AccountList",
	})

	ctx := context.Background()
	require.True(t, pages.Next(ctx))
	require.False(t, pages.Next(ctx))

	var callErr *CallError
	require.ErrorAs(t, pages.Err(), &callErr)
	require.Equal(t, 500, callErr.StatusCode)

	// The stream is dead; further calls stay false without new requests.
	calls := doer.calls
	require.False(t, pages.Next(ctx))
	require.Equal(t, calls, doer.calls)
}

func TestPaginateCollect(t *testing.T) {
	pageCount := 3
	perPage := 4
	var responses []Response
	for page := 0; page < pageCount; page++ {
		items := make([]map[string]any, 0, perPage)
		for i := 0; i < perPage; i++ {
			items = append(items, map[string]any{"Name": fmt.Sprintf("p%d-i%d", page, i)})
		}
		body := map[string]any{"AccountList": items}
		if page < pageCount-1 {
			body["NextToken"] = fmt.Sprintf("t%d", page)
		}
		encoded, err := json.Marshal(body)
		require.NoError(t, err)
		responses = append(responses, Response{StatusCode: 200, Body: encoded})
	}
	doer := &stubDoer{responses: responses}
	client := New(doer, "eu-west-1")

	pages := Paginate[map[string]any](client, PageSpec{
		Target:   "listManagedAccounts",
		ItemsKey: "AccountList",
	})
	items, err := pages.Collect(context.Background())
	require.NoError(t, err)
	require.Len(t, items, pageCount*perPage)
	require.Equal(t, pageCount, doer.calls)
}
