package registry

import "github.com/tinoosan/ftsd/internal/report"

// AttachGroupChat registers a counterpart group chat session under its
// contribution id. The messaging layer calls this when the conversation's
// media path comes up.
func (r *Registry) AttachGroupChat(contributionID string, cs report.ChatSession) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.groupChats[contributionID] = cs
}

// DetachGroupChat forgets a group chat counterpart.
func (r *Registry) DetachGroupChat(contributionID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.groupChats, contributionID)
}

// AttachOneToOneChat registers a counterpart one-to-one chat session under
// the remote contact.
func (r *Registry) AttachOneToOneChat(contact string, cs report.ChatSession) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.oneToOneChats[contact] = cs
}

// DetachOneToOneChat forgets a one-to-one chat counterpart.
func (r *Registry) DetachOneToOneChat(contact string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.oneToOneChats, contact)
}

// GroupChatByContribution implements report.Finder.
func (r *Registry) GroupChatByContribution(id string) (report.ChatSession, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	cs, ok := r.groupChats[id]
	return cs, ok
}

// OneToOneChatByContact implements report.Finder.
func (r *Registry) OneToOneChatByContact(contact string) (report.ChatSession, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	cs, ok := r.oneToOneChats[contact]
	return cs, ok
}
