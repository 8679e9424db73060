package device

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func aliases(records []Record) []string {
	out := make([]string, len(records))
	for i, r := range records {
		out[i] = r.Alias
	}
	return out
}

func ips(records []Record) []string {
	out := make([]string, len(records))
	for i, r := range records {
		out[i] = r.IP
	}
	return out
}

func TestSortByAliasPutsUnnamedLast(t *testing.T) {
	records := []Record{
		{Alias: "B", IP: "0.0.0.1"},
		{Alias: "A", IP: "0.0.0.2"},
		{IP: "0.0.0.3"},
	}
	got := Sort(records, SortByAlias)
	assert.Equal(t, []string{"A", "B", ""}, aliases(got))
}

func TestSortByAliasIsCaseInsensitiveWithIPTieBreak(t *testing.T) {
	records := []Record{
		{Alias: "lamp", IP: "192.168.2.20"},
		{Alias: "Lamp", IP: "192.168.2.3"},
		{Alias: "attic", IP: "192.168.2.99"},
		{IP: "192.168.2.200"},
		{IP: "192.168.2.100"},
	}
	got := Sort(records, SortByAlias)
	assert.Equal(t, []string{"192.168.2.99", "192.168.2.3", "192.168.2.20", "192.168.2.100", "192.168.2.200"}, ips(got))
}

func TestSortByIPIsNumeric(t *testing.T) {
	records := []Record{
		{IP: "192.168.2.100"},
		{IP: "192.168.2.9"},
		{IP: "not-an-ip"},
		{IP: "10.0.0.1"},
	}
	got := Sort(records, SortByIPAddress)
	assert.Equal(t, []string{"10.0.0.1", "192.168.2.9", "192.168.2.100", "not-an-ip"}, ips(got))
}

func TestSortIgnoresInputOrder(t *testing.T) {
	a := []Record{{Identity: "x", Alias: "same", IP: "1.1.1.1"}, {Identity: "y", Alias: "same", IP: "1.1.1.1"}}
	b := []Record{a[1], a[0]}
	assert.Equal(t, Sort(a, SortByAlias), Sort(b, SortByAlias))
}

func TestSortDoesNotMutateInput(t *testing.T) {
	records := []Record{{IP: "10.0.0.2"}, {IP: "10.0.0.1"}}
	Sort(records, SortByIPAddress)
	assert.Equal(t, "10.0.0.2", records[0].IP)
}

func TestParseSortKey(t *testing.T) {
	key, err := ParseSortKey("IP")
	require.NoError(t, err)
	assert.Equal(t, SortByIPAddress, key)

	key, err = ParseSortKey("")
	require.NoError(t, err)
	assert.Equal(t, SortByAlias, key)

	_, err = ParseSortKey("model")
	assert.Error(t, err)
}
