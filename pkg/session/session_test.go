package session

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openaid/aidsync/pkg/iati"
	"github.com/openaid/aidsync/pkg/importer"
	"github.com/openaid/aidsync/pkg/reconcile"
	"github.com/openaid/aidsync/pkg/store"
	"github.com/openaid/aidsync/pkg/store/memory"
)

const singleActivityDoc = `<?xml version="1.0" encoding="UTF-8"?>
<iati-activities version="2.03">
	<iati-activity>
		<iati-identifier>GB-GOV-1-12345</iati-identifier>
		<title><narrative>Health programme</narrative></title>
		<activity-status code="2"/>
		<reporting-org ref="GB-GOV-1" type="10"><narrative>DFID</narrative></reporting-org>
	</iati-activity>
</iati-activities>`

const multiActivityDoc = `<?xml version="1.0" encoding="UTF-8"?>
<iati-activities version="2.03">
	<iati-activity>
		<iati-identifier>GB-GOV-1-12345</iati-identifier>
		<title><narrative>Health programme</narrative></title>
		<activity-status code="2"/>
	</iati-activity>
	<iati-activity>
		<iati-identifier>GB-GOV-1-67890</iati-identifier>
		<title><narrative>Education programme</narrative></title>
		<activity-status code="2"/>
	</iati-activity>
</iati-activities>`

func seedActivity(t *testing.T, s *memory.Store, identifier string) int64 {
	t.Helper()
	var storedID int64
	err := s.WithTx(context.Background(), func(tx store.Tx) error {
		var err error
		storedID, err = tx.InsertActivity(context.Background(), &iati.Activity{
			IATIIdentifier: identifier,
			Title:          iati.TextBlock{Narratives: []iati.Narrative{{Text: "Health programme"}}},
			Status:         iati.CodeAttr{Code: "2"},
		})
		return err
	})
	require.NoError(t, err)
	return storedID
}

func TestSingleActivityDocumentSkipsSelection(t *testing.T) {
	sess, err := Open(strings.NewReader(singleActivityDoc), memory.New())
	require.NoError(t, err)
	assert.True(t, sess.SingleActivity())
	assert.Equal(t, 1, sess.Count())

	// Straight to diff without calling Preview first.
	diff, err := sess.Diff(context.Background(), 0)
	require.NoError(t, err)
	title := diff.Scalar("title")
	require.NotNil(t, title)
	assert.Equal(t, reconcile.NewOnly, title.State)
}

func TestPreviewAnnotatesExistingCandidate(t *testing.T) {
	fixed := time.Date(2015, 6, 1, 12, 0, 0, 0, time.UTC)
	st := memory.NewWithClock(func() time.Time { return fixed })
	storedID := seedActivity(t, st, "GB-GOV-1-12345")

	sess, err := Open(strings.NewReader(multiActivityDoc), st)
	require.NoError(t, err)
	assert.False(t, sess.SingleActivity())

	candidates, err := sess.Preview(context.Background())
	require.NoError(t, err)
	require.Len(t, candidates, 2)

	existing := candidates[0]
	assert.True(t, existing.Exists)
	assert.Equal(t, storedID, existing.StoredID)
	require.NotNil(t, existing.LastUpdated)
	assert.Equal(t, fixed, *existing.LastUpdated)

	assert.False(t, candidates[1].Exists)
	assert.Zero(t, candidates[1].StoredID)
}

func TestDiffAgainstStoredActivity(t *testing.T) {
	st := memory.New()
	seedActivity(t, st, "GB-GOV-1-12345")

	sess, err := Open(strings.NewReader(singleActivityDoc), st)
	require.NoError(t, err)

	diff, err := sess.Diff(context.Background(), 0)
	require.NoError(t, err)

	title := diff.Scalar("title")
	require.NotNil(t, title)
	assert.Equal(t, reconcile.Identical, title.State)

	// The stored copy has no reporting org; the imported one does.
	ref := diff.Scalar("reporting_org_ref")
	require.NotNil(t, ref)
	assert.Equal(t, reconcile.NewOnly, ref.State)
}

func TestDiffIndexOutOfRange(t *testing.T) {
	sess, err := Open(strings.NewReader(singleActivityDoc), memory.New())
	require.NoError(t, err)

	_, err = sess.Diff(context.Background(), 5)
	require.Error(t, err)
}

func TestExecuteThroughSession(t *testing.T) {
	st := memory.New()
	sess, err := Open(strings.NewReader(multiActivityDoc), st)
	require.NoError(t, err)

	result, err := sess.Execute(context.Background(),
		[]importer.Candidate{{Index: 0}, {Index: 1}}, importer.BulkCreate{})
	require.NoError(t, err)
	assert.Equal(t, 2, result.CreatedCount)
	assert.Equal(t, 2, st.Len())
}

func TestSessionIDsAreUnique(t *testing.T) {
	a, err := Open(strings.NewReader(singleActivityDoc), memory.New())
	require.NoError(t, err)
	b, err := Open(strings.NewReader(singleActivityDoc), memory.New())
	require.NoError(t, err)
	assert.NotEqual(t, a.ID(), b.ID())
	assert.NotEmpty(t, a.ID())
}
