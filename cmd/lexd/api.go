/* Copyright 2018-2019 Comcast Cable Communications Management, LLC
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 * http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package main

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/Comcast/lexicon/core"
	"github.com/Comcast/lexicon/library"
	"github.com/Comcast/lexicon/sio"
	"github.com/Comcast/lexicon/util"

	"go.uber.org/zap"
)

// api is a small JSON API for a Manager.
type api struct {
	m *library.Manager
}

func (a *api) register(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/stats", a.stats)
	mux.HandleFunc("GET /api/files", a.files)
	mux.HandleFunc("POST /api/files/{name}/toggle", a.toggle)
	mux.HandleFunc("POST /api/reload", a.reload)
	mux.HandleFunc("GET /api/rules", a.rules)
	mux.HandleFunc("GET /api/rules/{id}", a.rule)
	mux.HandleFunc("POST /api/rules/{id}/enabled", a.enableRule)
	mux.HandleFunc("DELETE /api/rules/{id}", a.deleteRule)
	mux.HandleFunc("POST /api/process", a.process)
}

func reply(w http.ResponseWriter, status int, x interface{}) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(x); err != nil {
		util.Logger().Warn("api write", zap.Error(err))
	}
}

func fail(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	var lerr *core.LoadIOError
	switch {
	case errors.Is(err, core.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, library.ErrBadName), errors.Is(err, library.ErrInvalidRule), errors.As(err, &lerr):
		status = http.StatusBadRequest
	}
	reply(w, status, map[string]string{
		"error": err.Error(),
	})
}

func (a *api) stats(w http.ResponseWriter, r *http.Request) {
	s, err := a.m.Stats(r.Context())
	if err != nil {
		fail(w, err)
		return
	}
	reply(w, http.StatusOK, s)
}

func (a *api) files(w http.ResponseWriter, r *http.Request) {
	fis, err := a.m.Files(r.Context())
	if err != nil {
		fail(w, err)
		return
	}
	reply(w, http.StatusOK, fis)
}

func (a *api) toggle(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")
	if err := library.CheckName(name); err != nil {
		fail(w, err)
		return
	}
	enabled, err := a.m.Toggle(r.Context(), name)
	if err != nil {
		fail(w, err)
		return
	}
	reply(w, http.StatusOK, map[string]interface{}{
		"filename": name,
		"enabled":  enabled,
	})
}

func (a *api) reload(w http.ResponseWriter, r *http.Request) {
	if err := a.m.Reload(r.Context(), r.URL.Query().Get("lexicon")); err != nil {
		fail(w, err)
		return
	}
	reply(w, http.StatusOK, map[string]bool{"ok": true})
}

func (a *api) rules(w http.ResponseWriter, r *http.Request) {
	ss, err := a.m.ListRules(r.URL.Query().Get("lexicon"))
	if err != nil {
		fail(w, err)
		return
	}
	if ss == nil {
		ss = []core.Summary{}
	}
	reply(w, http.StatusOK, ss)
}

func (a *api) rule(w http.ResponseWriter, r *http.Request) {
	e, name, err := a.m.GetRule(r.PathValue("id"))
	if err != nil {
		fail(w, err)
		return
	}
	reply(w, http.StatusOK, map[string]interface{}{
		"lexicon": name,
		"rule":    e,
	})
}

func (a *api) enableRule(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Enabled bool `json:"enabled"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		reply(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}
	if err := a.m.SetRuleEnabled(r.Context(), r.PathValue("id"), body.Enabled); err != nil {
		fail(w, err)
		return
	}
	reply(w, http.StatusOK, body)
}

func (a *api) deleteRule(w http.ResponseWriter, r *http.Request) {
	if err := a.m.DeleteRule(r.Context(), r.PathValue("id")); err != nil {
		fail(w, err)
		return
	}
	reply(w, http.StatusOK, map[string]bool{"ok": true})
}

func (a *api) process(w http.ResponseWriter, r *http.Request) {
	var in sio.Inbound
	d := json.NewDecoder(r.Body)
	d.UseNumber()
	if err := d.Decode(&in); err != nil {
		reply(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}
	reply(w, http.StatusOK, sio.NewOutbound(&in, a.m.Process(r.Context(), in.Text, in.Props)))
}
