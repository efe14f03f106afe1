package telegram

import "sync"

// projectStore remembers the last project description per chat so follow-up
// buttons and bare commands can reuse it. It lives only as long as the process.
type projectStore struct {
	m sync.Map // chatID -> string
}

func (s *projectStore) Set(chatID int64, text string) { s.m.Store(chatID, text) }

func (s *projectStore) Get(chatID int64) string {
	if v, ok := s.m.Load(chatID); ok {
		if t, _ := v.(string); t != "" {
			return t
		}
	}
	return ""
}
