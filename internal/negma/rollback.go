package negma

// RollbackTarget is the generation a rollback will switch to.
type RollbackTarget struct {
	Generation Generation
	// Explicit is true when the operator named the generation.
	Explicit bool
}

// ResolveRollback picks the rollback target from a sorted generation sequence.
//
// Fewer than two generations leave nothing to roll back to. With a requested
// ID the matching generation is returned, or a *GenerationNotFoundError. Without one, the generation immediately before the
// current one in sequence order is returned; IDs may have gaps left by garbage
// collection, so no ID arithmetic is done.
func ResolveRollback(gens []Generation, requested *int) (RollbackTarget, error) {
	if len(gens) < 2 {
		return RollbackTarget{}, ErrNoPreviousGeneration
	}
	if requested != nil {
		for _, g := range gens {
			if g.ID == *requested {
				return RollbackTarget{Generation: g, Explicit: true}, nil
			}
		}
		return RollbackTarget{}, &GenerationNotFoundError{ID: *requested}
	}

	for i, g := range gens {
		if !g.Current {
			continue
		}
		if i == 0 {
			return RollbackTarget{}, ErrNoPreviousGeneration
		}
		return RollbackTarget{Generation: gens[i-1]}, nil
	}
	return RollbackTarget{}, ErrNoCurrentGeneration
}
