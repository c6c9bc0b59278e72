/*
 * Copyright 2018 The Trickster Authors
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

package locks

import (
	"sync"
	"testing"
)

func TestLocks(t *testing.T) {
	var testVal int

	lk := NewNamedLocker()
	nl, _ := lk.Acquire("test")
	testVal++
	nl.Release()

	nl, _ = lk.Acquire("test")
	testVal++
	nl.Release()

	if testVal != 2 {
		t.Errorf("expected 2 got %d", testVal)
	}

	if _, err := lk.Acquire(""); err == nil {
		t.Error("expected error for empty lock name")
	}

	if n := lk.Len(); n != 0 {
		t.Errorf("expected released locks to be reaped, got %d", n)
	}
}

func TestLocksConcurrent(t *testing.T) {
	const size = 500
	var testVal int

	lk := NewNamedLocker()
	wg := sync.WaitGroup{}
	for range size {
		wg.Add(1)
		go func() {
			defer wg.Done()
			nl, _ := lk.Acquire("test")
			testVal++
			nl.Release()
		}()
	}
	wg.Wait()

	if testVal != size {
		t.Errorf("expected %d got %d", size, testVal)
	}
	if n := lk.Len(); n != 0 {
		t.Errorf("expected 0 held locks got %d", n)
	}
}

func TestRLocks(t *testing.T) {
	lk := NewNamedLocker()
	r1, _ := lk.RAcquire("test")
	r2, _ := lk.RAcquire("test")
	if n := lk.Len(); n != 1 {
		t.Errorf("expected 1 got %d", n)
	}
	r1.RRelease()
	r2.RRelease()

	w, _ := lk.Acquire("test")
	w.Release()
	if n := lk.Len(); n != 0 {
		t.Errorf("expected 0 got %d", n)
	}
}
