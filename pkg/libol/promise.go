package libol

import "time"

// Promise retries a call until it succeeds, waiting First before the
// second try and growing the wait by MinInt up to MaxInt. MaxTry 0
// retries forever.
type Promise struct {
	Count  int
	MaxTry int
	First  time.Duration
	MinInt time.Duration
	MaxInt time.Duration
}

func NewPromise() *Promise {
	return &Promise{
		First:  time.Second * 2,
		MaxInt: time.Minute,
		MinInt: time.Second * 10,
		MaxTry: 10,
	}
}

func NewPromiseAlways() *Promise {
	p := NewPromise()
	p.MaxTry = 0
	return p
}

func (p *Promise) Do(call func() error) error {
	wait := p.First
	for {
		p.Count++
		err := call()
		if err == nil {
			return nil
		}
		if p.MaxTry > 0 && p.Count >= p.MaxTry {
			return err
		}
		time.Sleep(wait)
		if wait += p.MinInt; wait > p.MaxInt {
			wait = p.MaxInt
		}
	}
}

func (p *Promise) Go(call func() error) {
	Go(func() {
		if err := p.Do(call); err != nil {
			Warn("Promise.Go: %s after %d tries", err, p.Count)
		}
	})
}
