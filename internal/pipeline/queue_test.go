package pipeline

import (
	"sort"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestQueue_FIFOMultisetPreserved(t *testing.T) {
	const k = 100
	q := NewQueue(10)

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 0; i < k; i++ {
			q.Put(NewFragmentRecord(i, []byte{byte(i)}))
		}
		q.Close()
	}()

	var got []int
	for {
		rec, ok := q.Get()
		if !ok {
			break
		}
		got = append(got, rec.Sequence)
	}
	wg.Wait()

	sort.Ints(got)
	want := make([]int, k)
	for i := range want {
		want[i] = i
	}
	assert.Equal(t, want, got)
}

func TestQueue_BlocksWhenFull(t *testing.T) {
	q := NewQueue(1)
	q.Put(NewFragmentRecord(0, nil))

	putDone := make(chan struct{})
	go func() {
		q.Put(NewFragmentRecord(1, nil)) // should block until a Get happens
		close(putDone)
	}()

	rec, ok := q.Get()
	assert.True(t, ok)
	assert.Equal(t, 0, rec.Sequence)

	<-putDone // the blocked Put must now have completed

	rec, ok = q.Get()
	assert.True(t, ok)
	assert.Equal(t, 1, rec.Sequence)
}
