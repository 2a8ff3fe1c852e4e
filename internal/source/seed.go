package source

// SeedFor derives the seed of one trial from a base seed. Neighbouring trial
// indices map to unrelated seeds, so parallel trials draw independent streams
// and a run is reproducible from its base seed alone.
func SeedFor(base uint64, trial int) uint64 {
	return splitmix64(base + uint64(trial)*0x9e3779b97f4a7c15)
}

// splitmix64 is the finaliser from Steele, Lea and Flood's SplitMix64.
func splitmix64(x uint64) uint64 {
	x += 0x9e3779b97f4a7c15
	x = (x ^ (x >> 30)) * 0xbf58476d1ce4e5b9
	x = (x ^ (x >> 27)) * 0x94d049bb133111eb
	return x ^ (x >> 31)
}
