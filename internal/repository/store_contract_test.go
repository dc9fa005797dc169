package repository

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/stemsi/student-registry/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// runStoreContract exercises the RecordStore behaviour shared by every variant.
// newStore must return an empty store.
func runStoreContract(t *testing.T, newStore func(t *testing.T) RecordStore) {
	t.Run("account ids increase and duplicates are rejected", func(t *testing.T) {
		ctx := context.Background()
		store := newStore(t)

		first := &model.Account{Username: "alice", PasswordHash: "h1", Role: model.RoleAdmin}
		second := &model.Account{Username: "bob", PasswordHash: "h2", Role: model.RoleUser}
		require.NoError(t, store.CreateAccount(ctx, first))
		require.NoError(t, store.CreateAccount(ctx, second))
		assert.Greater(t, first.ID, int64(0))
		assert.Greater(t, second.ID, first.ID)

		err := store.CreateAccount(ctx, &model.Account{Username: "alice", PasswordHash: "x", Role: model.RoleUser})
		assert.ErrorIs(t, err, ErrDuplicateUsername)

		// Usernames are case-sensitive.
		require.NoError(t, store.CreateAccount(ctx, &model.Account{Username: "Alice", PasswordHash: "h3", Role: model.RoleUser}))
	})

	t.Run("account lookup", func(t *testing.T) {
		ctx := context.Background()
		store := newStore(t)

		a := &model.Account{Username: "carol", PasswordHash: "hash", Role: model.RoleAdmin}
		require.NoError(t, store.CreateAccount(ctx, a))

		byID, err := store.GetAccount(ctx, a.ID)
		require.NoError(t, err)
		assert.Equal(t, *a, *byID)

		byName, err := store.GetAccountByUsername(ctx, "carol")
		require.NoError(t, err)
		assert.Equal(t, a.ID, byName.ID)
		assert.Equal(t, model.RoleAdmin, byName.Role)

		_, err = store.GetAccountByUsername(ctx, "CAROL")
		assert.ErrorIs(t, err, ErrNotFound)
		_, err = store.GetAccount(ctx, a.ID+100)
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("students list oldest first", func(t *testing.T) {
		ctx := context.Background()
		store := newStore(t)

		list, err := store.ListStudents(ctx)
		require.NoError(t, err)
		require.NotNil(t, list)
		assert.Empty(t, list)

		var ids []int64
		for i, name := range []string{"Zed", "Amy", "Kim"} {
			s := &model.Student{Name: name, Age: 10 + i, Gender: model.GenderOther, Class: "Class 3"}
			require.NoError(t, store.CreateStudent(ctx, s))
			ids = append(ids, s.ID)
		}
		assert.Less(t, ids[0], ids[1])
		assert.Less(t, ids[1], ids[2])

		list, err = store.ListStudents(ctx)
		require.NoError(t, err)
		require.Len(t, list, 3)
		assert.Equal(t, "Zed", list[0].Name)
		assert.Equal(t, "Amy", list[1].Name)
		assert.Equal(t, "Kim", list[2].Name)

		got, err := store.GetStudent(ctx, ids[1])
		require.NoError(t, err)
		assert.Equal(t, list[1], *got)

		_, err = store.GetStudent(ctx, ids[2]+100)
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("concurrent inserts get distinct ids", func(t *testing.T) {
		ctx := context.Background()
		store := newStore(t)

		const n = 32
		var wg sync.WaitGroup
		errs := make(chan error, n)
		for i := 0; i < n; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				s := &model.Student{Name: fmt.Sprintf("s%d", i), Age: 12, Gender: model.GenderFemale, Class: "Class 6"}
				errs <- store.CreateStudent(ctx, s)
			}(i)
		}
		wg.Wait()
		close(errs)
		for err := range errs {
			require.NoError(t, err)
		}

		list, err := store.ListStudents(ctx)
		require.NoError(t, err)
		require.Len(t, list, n)
		seen := make(map[int64]bool, n)
		for i, s := range list {
			assert.False(t, seen[s.ID], "duplicate id %d", s.ID)
			seen[s.ID] = true
			if i > 0 {
				assert.Greater(t, s.ID, list[i-1].ID)
			}
		}
	})
}
