package validator

import (
	"net/url"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Adithya-Monish-Kumar-K/docsearch/pkg/config"
	apperrors "github.com/Adithya-Monish-Kumar-K/docsearch/pkg/errors"
)

func TestValidateSearch(t *testing.T) {
	cfg := config.Default().Search

	tests := []struct {
		name    string
		values  url.Values
		want    Search
		badKeys []string
	}{
		{"defaults", url.Values{"q": {"cat"}}, Search{Query: "cat"}, nil},
		{"explicit", url.Values{"q": {"cat"}, "limit": {"5"}, "window": {"0"}}, Search{Query: "cat", Limit: 5}, nil},
		{"blank query ok", url.Values{}, Search{}, nil},
		{"limit not int", url.Values{"q": {"cat"}, "limit": {"ten"}}, Search{}, []string{"limit"}},
		{"limit too big", url.Values{"q": {"cat"}, "limit": {"1000"}}, Search{}, []string{"limit"}},
		{"both bad", url.Values{"q": {strings.Repeat("x", cfg.MaxQueryLength+1)}, "window": {"-1"}}, Search{}, []string{"q", "window"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ValidateSearch(tt.values, cfg)
			if tt.badKeys == nil {
				require.NoError(t, err)
				assert.Equal(t, tt.want, got)
				return
			}
			var verr *ValidationError
			require.ErrorAs(t, err, &verr)
			assert.ErrorIs(t, err, apperrors.ErrInvalidInput)
			for _, k := range tt.badKeys {
				assert.Contains(t, verr.Fields, k)
			}
			assert.Len(t, verr.Fields, len(tt.badKeys))
		})
	}
}

func TestValidateSuggest(t *testing.T) {
	cfg := config.Default().Search
	got, err := ValidateSuggest(url.Values{"prefix": {" se "}, "limit": {"3"}}, cfg)
	require.NoError(t, err)
	assert.Equal(t, Suggest{Prefix: "se", Limit: 3}, got)

	_, err = ValidateSuggest(url.Values{"limit": {"0"}}, cfg)
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "limit: limit must be between 1 and 100; prefix: prefix is required", verr.Error())
}
