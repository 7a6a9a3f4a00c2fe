// Package hasher provides one-way password hashing backed by a pool of
// background workers, keeping CPU-bound bcrypt work off the request path's
// goroutine count.
package hasher

import "golang.org/x/crypto/bcrypt"

// Cost is the bcrypt work factor used for every generated hash.
const Cost = 10

type job struct {
	password string
	result   chan<- result
}

type result struct {
	hash string
	err  error
}

// Hasher hashes passwords on a fixed pool of workers.
type Hasher struct {
	jobs chan job
}

// New starts numWorkers background workers and returns the Hasher.
func New(numWorkers int) *Hasher {
	if numWorkers < 1 {
		numWorkers = 1
	}

	h := &Hasher{
		jobs: make(chan job),
	}

	for i := 0; i < numWorkers; i++ {
		go h.worker()
	}

	return h
}

func (h *Hasher) worker() {
	for j := range h.jobs {
		hash, err := bcrypt.GenerateFromPassword([]byte(j.password), Cost)
		j.result <- result{hash: string(hash), err: err}
	}
}

// GenerateHash sends the plaintext to the worker pool and waits for the
// salted hash. The plaintext is never retained.
func (h *Hasher) GenerateHash(password string) (string, error) {
	resultChan := make(chan result, 1)
	h.jobs <- job{password: password, result: resultChan}

	r := <-resultChan
	return r.hash, r.err
}

// Close stops the workers. GenerateHash must not be called after Close.
func (h *Hasher) Close() {
	close(h.jobs)
}
