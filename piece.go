package stockfish

// Piece identifies a chessman by its FEN letter. White pieces use upper-case
// letters, Black pieces lower-case.
type Piece byte

const (
	PieceNone Piece = 0

	WhitePawn   Piece = 'P'
	WhiteKnight Piece = 'N'
	WhiteBishop Piece = 'B'
	WhiteRook   Piece = 'R'
	WhiteQueen  Piece = 'Q'
	WhiteKing   Piece = 'K'

	BlackPawn   Piece = 'p'
	BlackKnight Piece = 'n'
	BlackBishop Piece = 'b'
	BlackRook   Piece = 'r'
	BlackQueen  Piece = 'q'
	BlackKing   Piece = 'k'
)

func (p Piece) String() string {
	if p == PieceNone {
		return ""
	}
	return string(byte(p))
}

// IsWhite reports whether the piece belongs to White. PieceNone is neither
// color.
func (p Piece) IsWhite() bool {
	return p >= 'A' && p <= 'Z'
}

// IsBlack reports whether the piece belongs to Black.
func (p Piece) IsBlack() bool {
	return p >= 'a' && p <= 'z'
}

// pieceFromByte maps a board character back to a Piece. A blank square ('.'
// or ' ') and anything outside the FEN alphabet return PieceNone, false.
func pieceFromByte(b byte) (Piece, bool) {
	switch p := Piece(b); p {
	case WhitePawn, WhiteKnight, WhiteBishop, WhiteRook, WhiteQueen, WhiteKing,
		BlackPawn, BlackKnight, BlackBishop, BlackRook, BlackQueen, BlackKing:
		return p, true
	}
	return PieceNone, false
}

// Capture classifies what, if anything, a move takes.
type Capture int

const (
	CaptureNone Capture = iota
	CaptureDirect
	CaptureEnPassant
)

func (c Capture) String() string {
	switch c {
	case CaptureDirect:
		return "direct capture"
	case CaptureEnPassant:
		return "en passant"
	default:
		return "no capture"
	}
}
