package libol

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSafeStrInt64(t *testing.T) {
	s := NewSafeStrInt64()
	assert.Equal(t, int64(0), s.Get("send"), "be the same.")

	s.Add("send", 3)
	s.Add("send", 4)
	assert.Equal(t, int64(7), s.Get("send"), "be the same.")

	s.Set("send", 1)
	assert.Equal(t, int64(1), s.Get("send"), "be the same.")
}

func TestSafeStrInt64Data(t *testing.T) {
	s := NewSafeStrInt64()
	s.Add("recv", 2)
	data := s.Data()
	data["recv"] = 100
	assert.Equal(t, int64(2), s.Get("recv"), "copy must not alias.")
}

func TestSafeStrInt64Parallel(t *testing.T) {
	s := NewSafeStrInt64()
	wg := sync.WaitGroup{}
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				s.Add(fmt.Sprintf("k%d", i%4), 1)
			}
		}(i)
	}
	wg.Wait()
	total := int64(0)
	for _, v := range s.Data() {
		total += v
	}
	assert.Equal(t, int64(1600), total, "be the same.")
}
