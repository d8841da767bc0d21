package ir

import (
	"crypto/sha256"
	"encoding/hex"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFingerprintDeterminism(t *testing.T) {
	doc := map[string]any{"id": "D1", "title": "Annual report"}

	fp1, err := DocumentFingerprint(doc)
	require.NoError(t, err)
	fp2, err := DocumentFingerprint(doc)
	require.NoError(t, err)

	assert.Equal(t, fp1, fp2)
	assert.Len(t, fp1, 64, "SHA-256 hex is 64 characters")
}

func TestFingerprintIgnoresKeyOrder(t *testing.T) {
	a := decode(t, `{"id": "D1", "docdt": "2020-01-01"}`)
	b := decode(t, `{"docdt": "2020-01-01", "id": "D1"}`)

	fa, err := DocumentFingerprint(a)
	require.NoError(t, err)
	fb, err := DocumentFingerprint(b)
	require.NoError(t, err)

	assert.Equal(t, fa, fb)
}

func TestFingerprintChangesWithContent(t *testing.T) {
	fa, err := DocumentFingerprint(map[string]any{"id": "D1"})
	require.NoError(t, err)
	fb, err := DocumentFingerprint(map[string]any{"id": "D2"})
	require.NoError(t, err)

	assert.NotEqual(t, fa, fb)
}

func TestResultSetFingerprintOrderSensitive(t *testing.T) {
	d1 := map[string]any{"id": "D1"}
	d2 := map[string]any{"id": "D2"}

	fa, err := ResultSetFingerprint([]any{d1, d2})
	require.NoError(t, err)
	fb, err := ResultSetFingerprint([]any{d2, d1})
	require.NoError(t, err)

	assert.NotEqual(t, fa, fb)
}

func TestDomainSeparationPreventsCrossTypeCollision(t *testing.T) {
	v := []any{map[string]any{"id": "D1"}}

	asSet, err := ResultSetFingerprint(v)
	require.NoError(t, err)
	asDoc, err := DocumentFingerprint(v)
	require.NoError(t, err)

	assert.NotEqual(t, asSet, asDoc, "same bytes under different domains must not collide")
}

func TestHashWithDomainNullSeparator(t *testing.T) {
	// "ab" + "c" and "a" + "bc" must not collide.
	assert.NotEqual(t, hashWithDomain("ab", []byte("c")), hashWithDomain("a", []byte("bc")))

	sum := sha256.Sum256([]byte("d\x00x"))
	assert.Equal(t, hex.EncodeToString(sum[:]), hashWithDomain("d", []byte("x")))
}

func TestFingerprintErrorHandling(t *testing.T) {
	_, err := DocumentFingerprint(struct{}{})
	assert.Error(t, err)

	_, err = ResultSetFingerprint([]any{make(chan int)})
	assert.Error(t, err)
}

func TestDomainConstants(t *testing.T) {
	assert.Equal(t, "apiparity/result-set/v1", DomainResultSet)
	assert.Equal(t, "apiparity/document/v1", DomainDocument)
	assert.Equal(t, "apiparity/outcomes/v1", DomainOutcomes)
}

func TestOutcomesFingerprint(t *testing.T) {
	a := []Outcome{
		Pass("HTTP 200").For(SuiteBehavioral, "health", "behavioral/health/x", "", 1),
		Fail(KindAssertion, "got 3").For(SuiteBehavioral, "basic", "behavioral/basic/y", "", 2),
	}
	b := []Outcome{
		Pass("HTTP 204").For(SuiteBehavioral, "health", "behavioral/health/x", "", 1),
		Fail(KindAssertion, "got 4").For(SuiteBehavioral, "basic", "behavioral/basic/y", "", 2),
	}
	b[0].Elapsed = 5

	fa, err := OutcomesFingerprint(a)
	require.NoError(t, err)
	fb, err := OutcomesFingerprint(b)
	require.NoError(t, err)
	assert.Equal(t, fa, fb, "messages and timings do not affect the fingerprint")

	b[1].Kind = KindValidation
	fc, err := OutcomesFingerprint(b)
	require.NoError(t, err)
	assert.NotEqual(t, fa, fc)

	empty, err := OutcomesFingerprint(nil)
	require.NoError(t, err)
	assert.Len(t, empty, 64)
}
