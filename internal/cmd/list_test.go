package cmd_test

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/remindcli/remind/internal/cmd"
	"github.com/remindcli/remind/internal/core"
	"github.com/remindcli/remind/internal/persis/filereminder"
	"github.com/remindcli/remind/internal/test"
)

func TestListCommand(t *testing.T) {
	th := test.SetupCommand(t)

	th.RunCommand(t, cmd.List(), test.CmdTest{
		Args:        []string{"list"},
		ExpectedOut: []string{"No reminders."},
	})

	now := time.Now()
	th.AddReminder(t, "later", core.FixedAt(now.Add(3*time.Hour)))
	th.AddReminder(t, "sooner", core.FixedAt(now.Add(time.Hour)))
	done := th.AddReminder(t, "finished", core.FixedAt(now.Add(2*time.Hour)))
	require.NoError(t, filereminder.Update(th.Context, th.Store, func(st *core.ReminderStore) error {
		r, err := st.Get(done.ID)
		if err != nil {
			return err
		}
		r.Complete(now)
		return nil
	}))

	t.Run("Table", func(t *testing.T) {
		th.Reset()
		th.RunCommand(t, cmd.List(), test.CmdTest{
			Args:        []string{"list"},
			ExpectedOut: []string{"ID", "STATE", "later", "sooner", "finished", "done"},
		})
	})

	t.Run("Pending", func(t *testing.T) {
		th.Reset()
		th.RunCommand(t, cmd.List(), test.CmdTest{Args: []string{"list", "--pending", "--json"}})

		var got []*core.Reminder
		require.NoError(t, json.Unmarshal([]byte(th.Output.String()), &got))
		require.Len(t, got, 2)
		assert.Equal(t, "sooner", got[0].Content)
		assert.Equal(t, "later", got[1].Content)
	})

	t.Run("JSON", func(t *testing.T) {
		th.Reset()
		th.RunCommand(t, cmd.List(), test.CmdTest{Args: []string{"ls", "--json"}})

		var got []*core.Reminder
		require.NoError(t, json.Unmarshal([]byte(th.Output.String()), &got))
		require.Len(t, got, 3)
		assert.True(t, got[2].Completed)
	})

	t.Run("Show", func(t *testing.T) {
		th.Reset()
		th.RunCommand(t, cmd.Show(), test.CmdTest{
			Args:        []string{"show", "2"},
			ExpectedOut: []string{"sooner", "Schedule", "pending"},
		})

		err := th.RunCommandWithError(t, cmd.Show(), test.CmdTest{Args: []string{"show", "42"}})
		assert.ErrorIs(t, err, core.ErrReminderNotFound)
	})
}

func TestListCommand_UnreadableStore(t *testing.T) {
	th := test.SetupCommand(t)
	writeStoreFile(t, th, "{not json")

	err := th.RunCommandWithError(t, cmd.List(), test.CmdTest{Args: []string{"list"}})
	assert.ErrorIs(t, err, core.ErrStoreUnreadable)
	assert.Contains(t, th.LoggingOutput.String(), "Command failed")
}
