package methods

import "errors"

var errEmpty = errors.New("empty")

type Stack struct {
	items []int
}

func (s *Stack) Push(v int) {
	s.items = append(s.items, v)
}

func (s *Stack) Pop() (int, error) {
	if len(s.items) == 0 {
		return 0, errEmpty
	}
	v := s.items[len(s.items)-1]
	s.items = s.items[:len(s.items)-1]
	return v, nil
}

func drain(s *Stack) []int {
	var out []int
	for {
		v, err := s.Pop()
		if err != nil {
			return out
		}
		out = append(out, v)
	}
}

func Build(values ...int) []int {
	s := &Stack{}
	for _, v := range values {
		s.Push(v)
	}
	apply := func(f func(*Stack) []int) []int { return f(s) }
	return apply(drain)
}
