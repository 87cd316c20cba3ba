package registry

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func available() []Descriptor {
	return []Descriptor{
		{Name: "a", SourceID: "plugin.a", Priority: 3},
		{Name: "b", SourceID: "plugin.b", Priority: 2},
		{Name: "c", SourceID: "plugin.c", Priority: 1},
	}
}

func TestFilterForClient(t *testing.T) {
	testCases := []struct {
		desc     string
		spec     FilterSpec
		expected []string
	}{
		{
			desc:     "no filter keeps everything",
			expected: []string{"a", "b", "c"},
		},
		{
			desc:     "whitelist keeps the registration order",
			spec:     FilterSpec{Whitelist: []string{"c", "a"}},
			expected: []string{"a", "c"},
		},
		{
			desc:     "whitelist with unknown names",
			spec:     FilterSpec{Whitelist: []string{"x"}},
			expected: []string{},
		},
		{
			desc:     "blacklist removes",
			spec:     FilterSpec{Blacklist: []string{"b"}},
			expected: []string{"a", "c"},
		},
		{
			desc:     "blacklist with unknown names",
			spec:     FilterSpec{Blacklist: []string{"x"}},
			expected: []string{"a", "b", "c"},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.desc, func(t *testing.T) {
			filtered, err := FilterForClient(available(), tc.spec)
			require.NoError(t, err)
			require.Equal(t, tc.expected, names(filtered))
		})
	}
}

func TestFilterForClientKeepsDuplicateNames(t *testing.T) {
	descriptors := append(available(), Descriptor{Name: "a", SourceID: "plugin.other_a"})

	filtered, err := FilterForClient(descriptors, FilterSpec{Whitelist: []string{"a"}})
	require.NoError(t, err)
	require.Equal(t, []string{"a", "a"}, names(filtered))
	require.Equal(t, "plugin.a", filtered[0].SourceID)
	require.Equal(t, "plugin.other_a", filtered[1].SourceID)
}

func TestFilterForClientMixed(t *testing.T) {
	_, err := FilterForClient(available(), FilterSpec{Whitelist: []string{"a"}, Blacklist: []string{"b"}})
	require.ErrorIs(t, err, ErrMixedFilter)
}

func TestParseFilterSpec(t *testing.T) {
	testCases := []struct {
		desc     string
		aliases  []string
		expected FilterSpec
		err      error
	}{
		{
			desc: "nothing",
		},
		{
			desc:     "whitelist",
			aliases:  []string{"user_agent", "jwt_auth"},
			expected: FilterSpec{Whitelist: []string{"user_agent", "jwt_auth"}},
		},
		{
			desc:     "blacklist",
			aliases:  []string{"!jwt_auth"},
			expected: FilterSpec{Blacklist: []string{"jwt_auth"}},
		},
		{
			desc:     "space separated list",
			aliases:  []string{"user_agent  forwarded_for"},
			expected: FilterSpec{Whitelist: []string{"user_agent", "forwarded_for"}},
		},
		{
			desc:     "quoted alias",
			aliases:  []string{`"!basic_auth" !jwt_auth`},
			expected: FilterSpec{Blacklist: []string{"basic_auth", "jwt_auth"}},
		},
		{
			desc:     "duplicates collapse",
			aliases:  []string{"a a", "a"},
			expected: FilterSpec{Whitelist: []string{"a"}},
		},
		{
			desc:    "mixed",
			aliases: []string{"user_agent !jwt_auth"},
			err:     ErrMixedFilter,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.desc, func(t *testing.T) {
			spec, err := ParseFilterSpec(tc.aliases...)
			if tc.err != nil {
				require.ErrorIs(t, err, tc.err)
				return
			}

			require.NoError(t, err)
			require.Equal(t, tc.expected, spec)
		})
	}
}

func TestParseFilterSpecUnterminatedQuote(t *testing.T) {
	_, err := ParseFilterSpec(`"user_agent`)
	require.Error(t, err)
}

func TestClientTags(t *testing.T) {
	tags := NewClientTags()

	require.NoError(t, tags.Tag("api", FilterSpec{Blacklist: []string{"b"}}))
	require.NoError(t, tags.Tag("web", FilterSpec{}))

	err := tags.Tag("api", FilterSpec{Whitelist: []string{"a"}})
	require.ErrorIs(t, err, ErrClientTagCardinality)

	err = tags.Tag("mixed", FilterSpec{Whitelist: []string{"a"}, Blacklist: []string{"b"}})
	require.ErrorIs(t, err, ErrMixedFilter)

	require.Equal(t, []string{"api", "web"}, tags.Clients())

	resolved, err := tags.Resolve("api", available())
	require.NoError(t, err)
	require.Equal(t, []string{"a", "c"}, names(resolved))

	resolved, err = tags.Resolve("untagged", available())
	require.NoError(t, err)
	require.Equal(t, []string{"a", "b", "c"}, names(resolved))

	spec, ok := tags.Spec("web")
	require.True(t, ok)
	require.True(t, spec.IsEmpty())
}
