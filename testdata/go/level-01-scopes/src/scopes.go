package scopes

import (
	"fmt"
	"strings"
)

const limit = 3

var names = []string{"a", "b"}

func join(parts []string) string {
	return strings.Join(parts, ",")
}

func count(n int) int {
	total := 0
	for i := 0; i < n; i++ {
		if i > limit {
			break
		}
		total += i
	}
	return total
}

func Run() {
	shadow := join(names)
	{
		shadow := count(limit)
		fmt.Println(shadow)
	}
	fmt.Println(shadow)
}
