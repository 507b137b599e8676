package compression

// noLiteralAnchor marks that no literal record is open.
const noLiteralAnchor = -1

// runState is the run an [RLEWriter] is currently accumulating.
type runState struct {
	// value is the byte being repeated.
	value byte
	// length is the number of times value has been seen so far. Zero means no
	// run is open.
	length int
	// literalAnchor is the position in the writer's pending buffer of the count
	// byte of the literal record still being grown, or noLiteralAnchor.
	literalAnchor int
}

func newRunState() runState {
	return runState{literalAnchor: noLiteralAnchor}
}

func (state *runState) isOpen() bool {
	return state.length > 0
}

// open starts a new run of `value`. An open literal record stays open.
func (state *runState) open(value byte) {
	state.value = value
	state.length = 1
}

// reset discards the run. An open literal record stays open.
func (state *runState) reset() {
	state.value = 0
	state.length = 0
}

func (state *runState) hasLiteral() bool {
	return state.literalAnchor != noLiteralAnchor
}

func (state *runState) anchorLiteral(position int) {
	state.literalAnchor = position
}

// closeLiteral ends the open literal record, if any. Subsequent singletons
// must start a new one.
func (state *runState) closeLiteral() {
	state.literalAnchor = noLiteralAnchor
}
