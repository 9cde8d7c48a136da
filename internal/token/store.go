// token хранит текущий access-токен сессии в памяти процесса.
//
// Store - единственный источник истины для значения access-токена: его читает
// исходящий конвейер запросов и пишет менеджер сессии. Экземпляр передаётся
// явно по указателю, глобального состояния нет.
//
// Store не обращается к долговременному хранилищу и не валидирует токен.
// Параллельные записи не упорядочиваются: побеждает последняя.
package token

import "sync"

// Store - потокобезопасный держатель access-токена.
type Store struct {
	mu    sync.RWMutex
	token string
}

// New создаёт пустой Store.
func New() *Store {
	return &Store{}
}

// Set заменяет хранимый токен. Пустая строка означает «токена нет».
func (s *Store) Set(token string) {
	s.mu.Lock()
	s.token = token
	s.mu.Unlock()
}

// Get возвращает текущий токен и признак его наличия.
func (s *Store) Get() (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.token, s.token != ""
}

// Clear сбрасывает токен.
func (s *Store) Clear() {
	s.Set("")
}
