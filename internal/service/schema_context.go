package service

// schemaContext is the database description fed to SQL generation. It lists
// only the tables the sandbox may read, with relationships and sample values
// so the model picks real column names.
const schemaContext = `Database schema (PostgreSQL):

Table candidates:
  id UUID PRIMARY KEY
  name TEXT
  email TEXT
  phone TEXT
  skills TEXT[]            -- e.g. '{JavaScript,React,PostgreSQL}'
  status TEXT              -- 'ACTIVE' | 'INACTIVE' | 'HIRED'
  extracted_summary TEXT
  extracted_experience TEXT
  extracted_education TEXT
  extraction_status TEXT   -- 'pending' | 'success' | 'partial' | 'failed'
  created_at TIMESTAMPTZ

Table positions:
  id UUID PRIMARY KEY
  title TEXT               -- e.g. 'Senior Backend Engineer'
  department TEXT          -- e.g. 'Engineering'
  status TEXT              -- 'OPEN' | 'CLOSED'
  extracted_summary TEXT
  extracted_requirements TEXT
  created_at TIMESTAMPTZ

Table position_candidates:
  position_id UUID REFERENCES positions(id)
  candidate_id UUID REFERENCES candidates(id)
  created_at TIMESTAMPTZ
  -- links a candidate to a position (application or shortlist)

Table documents:
  id UUID PRIMARY KEY
  type TEXT                -- 'CV' | 'JOB_DESCRIPTION'
  file_name TEXT
  processing_status TEXT   -- 'pending' | 'extracted' | 'enriched'
  candidate_id UUID NULL REFERENCES candidates(id)
  position_id UUID NULL REFERENCES positions(id)
  created_at TIMESTAMPTZ

Relationships:
  position_candidates.position_id -> positions.id
  position_candidates.candidate_id -> candidates.id
  documents.candidate_id -> candidates.id (CV documents)
  documents.position_id -> positions.id (job description documents)`

// sqlFewShotExamples are example question/answer pairs appended to the SQL
// generation prompt.
const sqlFewShotExamples = `Examples:

Question: List all active candidates
Answer: {"sql": "SELECT id, name, email, status FROM candidates WHERE status = 'ACTIVE' ORDER BY name", "reasoning": "Filter candidates to status ACTIVE and return identifying columns."}

Question: How many open positions does each department have?
Answer: {"sql": "SELECT department, COUNT(*) AS open_positions FROM positions WHERE status = 'OPEN' GROUP BY department ORDER BY open_positions DESC", "reasoning": "Group open positions by department and count them."}

Question: Which candidates know PostgreSQL?
Answer: {"sql": "SELECT id, name, email FROM candidates WHERE 'PostgreSQL' = ANY(skills)", "reasoning": "skills is a text array, so use ANY to test membership."}`
