package jobsystem

import "testing"

func BenchmarkDequePushPop(b *testing.B) {
	d := newDeque(2048)
	j := &job{}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		d.push(j)
		d.pop()
	}
}

func BenchmarkDequeSteal(b *testing.B) {
	d := newDeque(2048)
	j := &job{}
	for i := 0; i < 1024; i++ {
		d.push(j)
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, ok := d.steal(); !ok {
			for k := 0; k < 1024; k++ {
				d.push(j)
			}
		}
	}
}
