package main

func addMul(x int) int {
	return x*10 + 3
}

func pick(b bool) int {
	v := 1
	if b {
		v = 2
	}
	return v
}

func looper(n int) int {
	s := 0
	for i := 0; i < n; i++ {
		s += i
	}
	return s
}

func main() {
	println(addMul(2) + pick(true) + looper(10))
}
