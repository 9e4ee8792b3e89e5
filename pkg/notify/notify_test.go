/*
 * Copyright 2025 ESPDeck Authors.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package notify

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/espdeck/espdeck/pkg/logger"
)

func TestPushAndList_NewestFirst(t *testing.T) {
	t.Parallel()

	center := NewCenter(logger.NewTestLogger())

	firstID := center.Push(Error, "fetch failed")
	secondID := center.Push(Warning, "channel closed")

	require.NotEqual(t, firstID, secondID)

	list := center.List()
	require.Len(t, list, 2)
	assert.Equal(t, "channel closed", list[0].Message)
	assert.Equal(t, "fetch failed", list[1].Message)
	assert.Equal(t, Warning, list[0].Level)
	assert.False(t, list[0].CreatedAt.IsZero())
}

func TestDismiss(t *testing.T) {
	t.Parallel()

	center := NewCenter(logger.NewTestLogger())

	id := center.Push(Error, "boom")
	keep := center.Push(Info, "still here")

	assert.True(t, center.Dismiss(id))
	assert.False(t, center.Dismiss(id), "second dismissal of the same id is a no-op")
	assert.False(t, center.Dismiss("no-such-id"))

	list := center.List()
	require.Len(t, list, 1)
	assert.Equal(t, keep, list[0].ID)
}

func TestDismissAll(t *testing.T) {
	t.Parallel()

	center := NewCenter(logger.NewTestLogger())

	center.Push(Error, "one")
	center.Push(Error, "two")
	center.DismissAll()

	assert.Zero(t, center.Len())
	assert.Empty(t, center.List())
}

func TestCapDropsOldest(t *testing.T) {
	t.Parallel()

	center := NewCenter(logger.NewTestLogger())

	for i := 0; i < maxNotifications+10; i++ {
		center.Push(Info, fmt.Sprintf("n-%d", i))
	}

	assert.Equal(t, maxNotifications, center.Len())

	list := center.List()
	assert.Equal(t, fmt.Sprintf("n-%d", maxNotifications+9), list[0].Message)
	assert.Equal(t, "n-10", list[len(list)-1].Message)
}

func TestOnChangeHook(t *testing.T) {
	t.Parallel()

	center := NewCenter(logger.NewTestLogger())

	fired := 0
	center.SetOnChange(func() { fired++ })

	id := center.Push(Info, "hello")
	center.Dismiss(id)
	center.Dismiss(id) // miss: no event
	center.DismissAll()

	assert.Equal(t, 3, fired)
}
