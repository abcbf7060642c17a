//go:build !linux && !darwin && !freebsd

package workload

func adviseRandom([]byte) {}

func adviseSequential([]byte) {}
