package sched

// niceWeights mirrors Linux CFS's sched_prio_to_weight table: weight
// grows geometrically (~1.25x per nice step down) as nice decreases.
// Index 0 is nice -20; index 39 is nice +19. W0 (index 20) is the
// reference weight for nice 0.
var niceWeights = [40]int64{
	88761, 71755, 56483, 46273, 36291,
	29154, 23254, 18705, 14949, 11916,
	9548, 7620, 6100, 4904, 3906,
	3121, 2501, 1991, 1586, 1277,
	1024, 820, 655, 526, 423,
	335, 272, 215, 172, 137,
	110, 87, 70, 56, 45,
	36, 29, 23, 18, 15,
}

// W0 is the reference weight for nice 0.
const W0 = 1024

// Weight returns the scheduling weight for a nice value in [-20, 19].
// Out-of-range values are clamped, matching a defensive table lookup
// rather than panicking on caller input that is merely unusual.
func Weight(nice int) int64 {
	if nice < -20 {
		nice = -20
	}
	if nice > 19 {
		nice = 19
	}
	return niceWeights[nice+20]
}
