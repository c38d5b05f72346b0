package sidebar

import (
	"cmp"
	"maps"
	"slices"
	"sync"
)

type Line struct {
	Score int
	Text  string
}

// View is what a viewer currently sees, highest score first
type View struct {
	Title string
	Lines []Line
}

// Board is the sidebar of one viewer
type Board struct {
	mutex sync.Mutex
	title string
	lines map[int]string
}

func (b *Board) SetTitle(title string) {
	b.mutex.Lock()
	defer b.mutex.Unlock()
	b.title = title
}

func (b *Board) LineCount() int {
	b.mutex.Lock()
	defer b.mutex.Unlock()
	return len(b.lines)
}

func (b *Board) Set(score int, text string) {
	b.mutex.Lock()
	defer b.mutex.Unlock()
	b.lines[score] = text
}

func (b *Board) Clear() {
	b.mutex.Lock()
	defer b.mutex.Unlock()
	clear(b.lines)
}

func (b *Board) View() View {
	b.mutex.Lock()
	defer b.mutex.Unlock()

	scores := slices.SortedFunc(maps.Keys(b.lines), func(x, y int) int {
		return cmp.Compare(y, x)
	})
	lines := make([]Line, 0, len(scores))
	for _, score := range scores {
		lines = append(lines, Line{Score: score, Text: b.lines[score]})
	}

	return View{
		Title: b.title,
		Lines: lines,
	}
}

// Boards holds the sidebar of every online viewer
type Boards struct {
	mutex  sync.Mutex
	boards map[string]*Board
}

func NewBoards() *Boards {
	return &Boards{
		boards: make(map[string]*Board),
	}
}

func (b *Boards) GetOrCreate(viewerID string) *Board {
	b.mutex.Lock()
	defer b.mutex.Unlock()

	board, ok := b.boards[viewerID]
	if !ok {
		board = &Board{lines: make(map[int]string)}
		b.boards[viewerID] = board
	}
	return board
}

func (b *Boards) Get(viewerID string) (*Board, bool) {
	b.mutex.Lock()
	defer b.mutex.Unlock()

	board, ok := b.boards[viewerID]
	return board, ok
}

func (b *Boards) Delete(viewerID string) {
	b.mutex.Lock()
	defer b.mutex.Unlock()
	delete(b.boards, viewerID)
}

func (b *Boards) DeleteAll() {
	b.mutex.Lock()
	defer b.mutex.Unlock()
	clear(b.boards)
}

func (b *Boards) Count() int {
	b.mutex.Lock()
	defer b.mutex.Unlock()
	return len(b.boards)
}
